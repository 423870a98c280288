// controllers/discovery_controller.go
package controller

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"mailscout/config"
	"mailscout/discovery"
	"mailscout/models"
	"mailscout/utils"
)

type DiscoveryController struct {
	DB      *gorm.DB
	Service *discovery.Service
	Logger  *log.Logger
}

func NewDiscoveryController(db *gorm.DB, service *discovery.Service, logger *log.Logger) *DiscoveryController {
	return &DiscoveryController{
		DB:      db,
		Service: service,
		Logger:  logger,
	}
}

type discoverRequest struct {
	FirstName     string `json:"first_name" validate:"required"`
	LastName      string `json:"last_name"`
	CompanyDomain string `json:"company_domain" validate:"required,contains=."`
	LinkedInURL   string `json:"linkedin_url" validate:"omitempty,url"`
	Verify        *bool  `json:"verify"`
}

// Discover handles a single-person discovery request and persists the best
// match when it clears the configured confidence threshold.
func (dc *DiscoveryController) Discover(c *fiber.Ctx) error {
	var req discoverRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request format", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	verify := true
	if req.Verify != nil {
		verify = *req.Verify
	}

	result, err := dc.Service.Discover(c.Context(), req.FirstName, req.LastName, req.CompanyDomain, verify)
	if err != nil {
		if errors.Is(err, discovery.ErrInvalidInput) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid discovery input", err)
		}
		dc.Logger.Printf("Discovery failed for %s %s: %v", req.FirstName, req.LastName, err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Discovery failed", err)
	}

	dc.saveBestMatch(nil, req, result)

	return c.JSON(result)
}

// saveBestMatch records a contact for a confident best match. Persistence is
// best-effort: a storage failure never fails the discovery response.
func (dc *DiscoveryController) saveBestMatch(jobID *uint, req discoverRequest, result *discovery.Result) {
	best := result.BestMatch
	if best == nil || best.Confidence < config.AppConfig.MinSaveConfidence {
		return
	}

	contact := models.Contact{
		JobID:         jobID,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		CompanyDomain: discovery.NormalizeDomain(req.CompanyDomain),
		LinkedInURL:   req.LinkedInURL,
		Email:         best.Email,
		Pattern:       string(best.Pattern),
		Confidence:    best.Confidence,
		Reachable:     best.Valid,
		Reason:        best.Reason,
	}
	if err := dc.DB.Create(&contact).Error; err != nil {
		dc.Logger.Printf("Failed to save contact %s: %v", best.Email, err)
	}
}

type bulkDiscoverRequest struct {
	Name        string `json:"name" validate:"required"`
	NotifyEmail string `json:"notify_email" validate:"omitempty,email"`
	Verify      *bool  `json:"verify"`
	People      []struct {
		FirstName     string `json:"first_name" validate:"required"`
		LastName      string `json:"last_name"`
		CompanyDomain string `json:"company_domain" validate:"required,contains=."`
		LinkedInURL   string `json:"linkedin_url" validate:"omitempty,url"`
	} `json:"people" validate:"required,min=1,max=500,dive"`
}

// BulkDiscover queues a discovery job; the background worker picks it up.
func (dc *DiscoveryController) BulkDiscover(c *fiber.Ctx) error {
	var req bulkDiscoverRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request format", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	verify := true
	if req.Verify != nil {
		verify = *req.Verify
	}

	job := models.DiscoveryJob{
		Name:         req.Name,
		Status:       "queued",
		Verify:       verify,
		NotifyEmail:  req.NotifyEmail,
		TotalTargets: len(req.People),
	}

	err := dc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&job).Error; err != nil {
			return err
		}
		targets := make([]models.DiscoveryTarget, 0, len(req.People))
		for _, p := range req.People {
			targets = append(targets, models.DiscoveryTarget{
				JobID:         job.ID,
				FirstName:     p.FirstName,
				LastName:      p.LastName,
				CompanyDomain: p.CompanyDomain,
				LinkedInURL:   p.LinkedInURL,
				Status:        "pending",
			})
		}
		return tx.Create(&targets).Error
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create discovery job", err)
	}

	utils.LogEvent("bulk_discovery_queued", map[string]interface{}{
		"job_id":  job.ID,
		"targets": len(req.People),
		"verify":  verify,
	})

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Discovery job queued",
		"job_id":  job.ID,
	})
}

// GetJob returns a job with its targets and discovered contacts.
func (dc *DiscoveryController) GetJob(c *fiber.Ctx) error {
	var job models.DiscoveryJob
	if err := dc.DB.Preload("Targets").First(&job, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Job not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load job", err)
	}

	var contacts []models.Contact
	if err := dc.DB.Where("job_id = ?", job.ID).Find(&contacts).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load contacts", err)
	}

	return c.JSON(fiber.Map{
		"job":      job,
		"contacts": contacts,
	})
}

// GetContacts lists discovered contacts, newest first, paginated.
func (dc *DiscoveryController) GetContacts(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := dc.DB.Model(&models.Contact{})
	if domain := c.Query("domain"); domain != "" {
		query = query.Where("company_domain = ?", discovery.NormalizeDomain(domain))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count contacts", err)
	}

	var contacts []models.Contact
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&contacts).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load contacts", err)
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  contacts,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}
