package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JobType string

const (
	JobTypeImagePull  JobType = "image_pull"
	JobTypeVmCreate   JobType = "vm_create"
	JobTypeHostDeploy JobType = "host_deploy"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is the general-purpose async-operation record. Transfers keep their
// own dedicated table because they are higher frequency and need byte-level
// progress.
type Job struct {
	Id           string    `json:"id" gorm:"column:id;primaryKey;type:varchar(36)"`
	JobType      JobType   `json:"job_type" gorm:"column:job_type"`
	Status       JobStatus `json:"status" gorm:"column:status;default:pending"`
	Description  *string   `json:"description,omitempty" gorm:"column:description"`
	ResourceID   *string   `json:"resource_id,omitempty" gorm:"column:resource_id;type:varchar(36);index"`
	ResourceType *string   `json:"resource_type,omitempty" gorm:"column:resource_type"`
	Progress     int       `json:"progress" gorm:"column:progress"`
	Result       JSONMap   `json:"result,omitempty" gorm:"column:result;type:text"`
	Error        *string   `json:"error,omitempty" gorm:"column:error"`

	CreatedAt   time.Time  `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
	StartedAt   *time.Time `json:"started_at,omitempty" gorm:"column:started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" gorm:"column:completed_at"`
}

func (Job) TableName() string {
	return "jobs"
}

func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.Id == "" {
		j.Id = uuid.NewString()
	}
	if j.Status == "" {
		j.Status = JobStatusPending
	}
	return nil
}
