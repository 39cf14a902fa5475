// Package models holds the request and response bodies of the status API.
package models

import (
	"time"

	"github.com/smazurov/camspeed/internal/camera"
)

// HealthData is the body of the health check.
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// VersionData is the body of the version endpoint.
type VersionData struct {
	Version   string `json:"version" example:"1.2.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit hash"`
	BuildDate string `json:"build_date" doc:"Build timestamp"`
	Modified  bool   `json:"modified" doc:"Built from a dirty working tree"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go runtime version"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"OS and architecture"`
}

type VersionResponse struct {
	Body VersionData
}

// ReportData is one interval measurement.
type ReportData struct {
	Seq        int       `json:"seq" example:"12" doc:"Report number, 1 is the first after warm-up"`
	Frames     int       `json:"frames" example:"225" doc:"Frames counted in the interval"`
	FPS        float64   `json:"fps" example:"225" doc:"Frames per second"`
	IntervalMs int64     `json:"interval_ms" example:"1000" doc:"Interval length in milliseconds"`
	Timestamp  time.Time `json:"timestamp" doc:"End of the interval"`
}

// CountersData are the running totals of the session's camera.
type CountersData struct {
	Frames            uint64 `json:"frames" doc:"Frames acquired"`
	Reports           uint64 `json:"reports" doc:"Reports emitted"`
	IncompleteFrames  uint64 `json:"incomplete_frames" doc:"Frames delivered incomplete"`
	AcquisitionErrors uint64 `json:"acquisition_errors" doc:"Fatal acquisition errors"`
}

// StatusData is the state of the measuring session.
type StatusData struct {
	SessionID     string             `json:"session_id,omitempty" doc:"Session identifier"`
	Serial        string             `json:"serial,omitempty" example:"SIM20001" doc:"Camera serial number"`
	State         string             `json:"state" enum:"idle,starting,streaming,stopped,failed" doc:"Session state"`
	Error         string             `json:"error,omitempty" doc:"Failure message when state is failed"`
	Since         time.Time          `json:"since" doc:"Time of the last state change"`
	Device        *camera.DeviceInfo `json:"device,omitempty" doc:"Device information"`
	Settings      *camera.Settings   `json:"settings,omitempty" doc:"Settings read back after configuration"`
	SettingsError string             `json:"settings_error,omitempty" doc:"Error of the last settings write"`
	LastReport    *ReportData        `json:"last_report,omitempty" doc:"Most recent measurement"`
	Counters      *CountersData      `json:"counters,omitempty" doc:"Running totals"`
	LiveReloads   int                `json:"live_reloads" doc:"Live settings updates applied"`
}

type StatusResponse struct {
	Body StatusData
}
