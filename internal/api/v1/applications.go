package v1

import (
	"context"
	"io"

	"workfit-event-service-golang/internal/saga"
	"workfit-event-service-golang/internal/store"

	"github.com/friendsofgo/errors"
	fiber "github.com/gofiber/fiber/v2"
)

// Submitter runs the application submission flow.
type Submitter interface {
	Submit(ctx context.Context, req saga.SubmitRequest) (*store.Application, error)
}

// ApplicationAPI exposes the submission saga over HTTP.
type ApplicationAPI struct {
	Saga Submitter
}

// Đăng ký các route "applications"
func (a *ApplicationAPI) RegisterApplicationRoutes(r fiber.Router) {
	r.Post("/", a.submitApplication)
}

// @Summary Submit a job application
// @Description Runs the submission flow: validate, snapshot the job, store the CV, persist the application, then fan out events
// @Tags applications
// @Accept mpfd
// @Produce json
// @Param username formData string true "Candidate username"
// @Param email formData string true "Candidate email"
// @Param jobId formData string true "Job ID"
// @Param coverLetter formData string false "Cover letter"
// @Param cvFile formData file true "CV file"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /applications [post]
func (a *ApplicationAPI) submitApplication(c *fiber.Ctx) error {
	req := saga.SubmitRequest{
		Username:    c.FormValue("username"),
		Email:       c.FormValue("email"),
		JobID:       c.FormValue("jobId"),
		CoverLetter: c.FormValue("coverLetter"),
	}

	if fh, err := c.FormFile("cvFile"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "cannot read cv file"})
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "cannot read cv file"})
		}
		req.CvFileName = fh.Filename
		req.CvContentType = fh.Header.Get("Content-Type")
		req.CvData = data
	}

	app, err := a.Saga.Submit(c.Context(), req)
	if err != nil {
		var dup *saga.DuplicateError
		if errors.As(err, &dup) {
			return c.Status(409).JSON(fiber.Map{"error": dup.Error()})
		}
		var verr *saga.ValidationError
		if errors.As(err, &verr) {
			return c.Status(400).JSON(fiber.Map{"error": verr.Msg})
		}
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(201).JSON(fiber.Map{
		"applicationId": app.ID.Hex(),
		"status":        app.Status,
		"submittedAt":   app.SubmittedAt,
	})
}
