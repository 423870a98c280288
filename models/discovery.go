package models

import (
	"gorm.io/gorm"
)

// DiscoveryJob tracks one bulk discovery request through the worker.
type DiscoveryJob struct {
	gorm.Model
	Name   string `gorm:"not null" json:"name"`
	Status string `gorm:"not null;default:'queued';index" json:"status"` // queued, running, completed, failed

	Verify      bool   `gorm:"default:true" json:"verify"`
	NotifyEmail string `json:"notify_email"`

	// Progress counters
	TotalTargets int `gorm:"default:0" json:"total_targets"`
	Processed    int `gorm:"default:0" json:"processed"`
	FoundCount   int `gorm:"default:0" json:"found_count"`

	Error string `json:"error,omitempty"`

	// Relations
	Targets []DiscoveryTarget `gorm:"foreignKey:JobID" json:"targets,omitempty"`
}

// DiscoveryTarget is one person to discover within a job.
type DiscoveryTarget struct {
	gorm.Model
	JobID uint `gorm:"not null;index" json:"job_id"`

	FirstName     string `gorm:"not null" json:"first_name"`
	LastName      string `json:"last_name"`
	CompanyDomain string `gorm:"not null" json:"company_domain"`
	LinkedInURL   string `json:"linkedin_url"`

	Status string `gorm:"default:'pending'" json:"status"` // pending, done, failed
	Error  string `json:"error,omitempty"`
}

// Contact is a discovered address worth keeping: the best match of a run
// whose confidence cleared the configured threshold.
type Contact struct {
	gorm.Model
	JobID *uint `gorm:"index" json:"job_id,omitempty"`

	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	CompanyDomain string `gorm:"index" json:"company_domain"`
	LinkedInURL   string `json:"linkedin_url,omitempty"`

	Email      string  `gorm:"not null;index" json:"email"`
	Pattern    string  `json:"pattern"`
	Confidence float64 `json:"confidence"`
	Reachable  *bool   `json:"reachable"`
	Reason     string  `json:"reason"`
}
