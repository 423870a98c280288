package worker

import (
	"context"
	"log"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"mailscout/config"
	"mailscout/discovery"
	"mailscout/models"
	"mailscout/utils"
)

// DiscoveryWorker drains queued bulk-discovery jobs, running each target
// through the discovery engine and persisting confident matches.
type DiscoveryWorker struct {
	DB       *gorm.DB
	Service  *discovery.Service
	Notifier *utils.Notifier
	Logger   *log.Logger
}

func NewDiscoveryWorker(db *gorm.DB, service *discovery.Service, notifier *utils.Notifier, logger *log.Logger) *DiscoveryWorker {
	return &DiscoveryWorker{
		DB:       db,
		Service:  service,
		Notifier: notifier,
		Logger:   logger,
	}
}

func (dw *DiscoveryWorker) Start(ctx context.Context) {
	dw.Logger.Println("Discovery worker started")

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			dw.Logger.Println("Discovery worker shutting down...")
			return
		case <-ticker.C:
			dw.processQueuedJobs(ctx)
		}
	}
}

func (dw *DiscoveryWorker) processQueuedJobs(ctx context.Context) {
	var jobs []models.DiscoveryJob
	if err := dw.DB.Where("status = ?", "queued").Order("created_at ASC").Find(&jobs).Error; err != nil {
		dw.Logger.Printf("Error fetching queued jobs: %v", err)
		return
	}

	for _, job := range jobs {
		if ctx.Err() != nil {
			return
		}
		if err := dw.processJob(ctx, job); err != nil {
			dw.Logger.Printf("Error processing job %d: %v", job.ID, err)
			dw.DB.Model(&models.DiscoveryJob{}).Where("id = ?", job.ID).
				Updates(map[string]interface{}{"status": "failed", "error": err.Error()})
		}
	}
}

func (dw *DiscoveryWorker) processJob(ctx context.Context, job models.DiscoveryJob) error {
	logrus.WithFields(logrus.Fields{
		"job_id":  job.ID,
		"targets": job.TotalTargets,
		"verify":  job.Verify,
	}).Info("bulk_discovery_started")

	if err := dw.DB.Model(&job).Update("status", "running").Error; err != nil {
		return err
	}

	var targets []models.DiscoveryTarget
	if err := dw.DB.Where("job_id = ? AND status = ?", job.ID, "pending").Find(&targets).Error; err != nil {
		return err
	}

	processed := job.Processed
	found := job.FoundCount

	for _, target := range targets {
		if ctx.Err() != nil {
			// Leave the job queued so a restart resumes the remaining targets.
			dw.DB.Model(&job).Update("status", "queued")
			return nil
		}

		result, err := dw.Service.Discover(ctx, target.FirstName, target.LastName, target.CompanyDomain, job.Verify)
		if err != nil {
			dw.DB.Model(&target).Updates(map[string]interface{}{"status": "failed", "error": err.Error()})
		} else {
			dw.DB.Model(&target).Update("status", "done")
			if dw.saveContact(job.ID, target, result) {
				found++
			}
		}

		processed++
		dw.DB.Model(&job).Updates(map[string]interface{}{
			"processed":   processed,
			"found_count": found,
		})
	}

	if err := dw.DB.Model(&job).Update("status", "completed").Error; err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"job_id":    job.ID,
		"processed": processed,
		"found":     found,
	}).Info("bulk_discovery_completed")

	if err := dw.Notifier.NotifyJobComplete(job.NotifyEmail, job.Name, processed, found); err != nil {
		dw.Logger.Printf("Failed to send completion notification for job %d: %v", job.ID, err)
	}
	return nil
}

func (dw *DiscoveryWorker) saveContact(jobID uint, target models.DiscoveryTarget, result *discovery.Result) bool {
	best := result.BestMatch
	if best == nil || best.Confidence < config.AppConfig.MinSaveConfidence {
		return false
	}

	contact := models.Contact{
		JobID:         &jobID,
		FirstName:     target.FirstName,
		LastName:      target.LastName,
		CompanyDomain: discovery.NormalizeDomain(target.CompanyDomain),
		LinkedInURL:   target.LinkedInURL,
		Email:         best.Email,
		Pattern:       string(best.Pattern),
		Confidence:    best.Confidence,
		Reachable:     best.Valid,
		Reason:        best.Reason,
	}
	if err := dw.DB.Create(&contact).Error; err != nil {
		dw.Logger.Printf("Failed to save contact %s: %v", best.Email, err)
		return false
	}
	return true
}
