// controllers/discovery_ws.go
package controller

import (
	"log"
	"time"

	"github.com/gofiber/websocket/v2"

	"mailscout/config"
	"mailscout/models"
)

// HandleJobProgressWS streams bulk-job progress to a client. The client
// sends {"job_id": N} once; the server pushes progress frames until the job
// leaves the queued/running states.
func HandleJobProgressWS(c *websocket.Conn) {
	defer c.Close()

	var input struct {
		JobID uint `json:"job_id"`
	}

	if err := c.ReadJSON(&input); err != nil {
		log.Printf("Error reading JSON: %v", err)
		return
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		var job models.DiscoveryJob
		if err := config.DB.First(&job, input.JobID).Error; err != nil {
			_ = c.WriteJSON(map[string]string{"error": "job not found"})
			return
		}

		progress := struct {
			Status    string `json:"status"`
			Processed int    `json:"processed"`
			Total     int    `json:"total"`
			Found     int    `json:"found"`
			Percent   int    `json:"percent"`
		}{
			Status:    job.Status,
			Processed: job.Processed,
			Total:     job.TotalTargets,
			Found:     job.FoundCount,
		}
		if job.TotalTargets > 0 {
			progress.Percent = job.Processed * 100 / job.TotalTargets
		}

		if err := c.WriteJSON(progress); err != nil {
			log.Printf("Error writing JSON: %v", err)
			return
		}

		if job.Status != "queued" && job.Status != "running" {
			return
		}
	}
}
