package handlers

import (
	"strconv"

	"pulse/pkg/apperr"
	"pulse/pkg/auth"
	"pulse/pkg/middleware"
	"pulse/pkg/models"
	"pulse/pkg/services"

	"github.com/gofiber/fiber/v2"
)

type SocialHandler struct {
	social *services.SocialService
	tree   *services.CommentTree
}

func NewSocial(social *services.SocialService, tree *services.CommentTree) *SocialHandler {
	return &SocialHandler{social: social, tree: tree}
}

func paramID(c *fiber.Ctx) (int, error) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid id")
	}
	return id, nil
}

func caller(c *fiber.Ctx) (auth.Identity, error) {
	id, ok := middleware.Identity(c)
	if !ok {
		return auth.Identity{}, apperr.Unauthenticated("token not provided")
	}
	return id, nil
}

func (h *SocialHandler) CreatePost(c *fiber.Ctx) error {
	me, err := caller(c)
	if err != nil {
		return err
	}
	var req models.CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid JSON")
	}

	post, err := h.social.CreatePost(c.UserContext(), me, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *SocialHandler) Stats(c *fiber.Ctx) error {
	postID, err := paramID(c)
	if err != nil {
		return err
	}
	stats, err := h.social.Stats(c.UserContext(), postID)
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

func (h *SocialHandler) ToggleLike(c *fiber.Ctx) error {
	me, err := caller(c)
	if err != nil {
		return err
	}
	postID, err := paramID(c)
	if err != nil {
		return err
	}

	res, err := h.social.ToggleLike(c.UserContext(), postID, me)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *SocialHandler) Share(c *fiber.Ctx) error {
	me, err := caller(c)
	if err != nil {
		return err
	}
	postID, err := paramID(c)
	if err != nil {
		return err
	}

	res, err := h.social.Share(c.UserContext(), postID, me)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *SocialHandler) AddComment(c *fiber.Ctx) error {
	me, err := caller(c)
	if err != nil {
		return err
	}
	postID, err := paramID(c)
	if err != nil {
		return err
	}
	var req models.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid JSON")
	}

	comment, err := h.social.AddComment(c.UserContext(), postID, req, me)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

func (h *SocialHandler) Comments(c *fiber.Ctx) error {
	postID, err := paramID(c)
	if err != nil {
		return err
	}
	tree, err := h.tree.Comments(c.UserContext(), postID)
	if err != nil {
		return err
	}
	return c.JSON(tree)
}

func (h *SocialHandler) DeleteComment(c *fiber.Ctx) error {
	me, err := caller(c)
	if err != nil {
		return err
	}
	commentID, err := paramID(c)
	if err != nil {
		return err
	}

	if err := h.social.DeleteComment(c.UserContext(), commentID, me); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "deleted"})
}

func (h *SocialHandler) DeletePost(c *fiber.Ctx) error {
	me, err := caller(c)
	if err != nil {
		return err
	}
	postID, err := paramID(c)
	if err != nil {
		return err
	}

	if err := h.social.DeletePost(c.UserContext(), postID, me); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "deleted"})
}
