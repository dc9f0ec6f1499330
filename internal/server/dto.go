package server

import (
	"path"
	"time"

	"genart/internal/domain"
	"genart/internal/schedule"
	"genart/internal/status"
)

// Response payloads

type ArtworkResponse struct {
	Key         string   `json:"key" example:"2026-01-24-3"`
	Date        string   `json:"date" example:"2026-01-24"`
	Period      int      `json:"period" minimum:"1" maximum:"4"`
	PeriodLabel string   `json:"period_label" enum:"Morning,Afternoon,Evening,Night"`
	Theme       string   `json:"theme"`
	Score       *float64 `json:"score,omitempty" doc:"Curator score out of 10"`
	Reasoning   string   `json:"reasoning,omitempty"`
	Timestamp   string   `json:"timestamp" format:"date-time"`
	ImageURL    string   `json:"image_url"`
	CodeURL     string   `json:"code_url"`
	MetadataURL string   `json:"metadata_url"`
}

type ArtworkList struct {
	Items []ArtworkResponse `json:"items"`
	Count int               `json:"count"`
}

type DateList struct {
	Items []string `json:"items"`
}

type StatusResponse struct {
	State     string                 `json:"state" enum:"disabled,loading,unavailable,active,idle"`
	Loading   bool                   `json:"loading"`
	Status    *domain.StatusDocument `json:"status,omitempty"`
	NextCycle string                 `json:"next_cycle,omitempty" doc:"Next generation, from the document or the configured cycle when idle"`
	LastError string                 `json:"last_error,omitempty"`
	UpdatedAt string                 `json:"updated_at,omitempty" format:"date-time"`
}

func artworkResponse(rec domain.ArtworkRecord, filesPrefix string) ArtworkResponse {
	return ArtworkResponse{
		Key:         rec.Key(),
		Date:        rec.Date,
		Period:      rec.Period,
		PeriodLabel: rec.PeriodLabel(),
		Theme:       rec.Theme,
		Score:       rec.Score,
		Reasoning:   rec.Reasoning,
		Timestamp:   rec.Timestamp,
		ImageURL:    path.Join(filesPrefix, rec.ImagePath()),
		CodeURL:     path.Join(filesPrefix, rec.CodePath()),
		MetadataURL: path.Join(filesPrefix, rec.MetadataPath()),
	}
}

func artworkList(recs []domain.ArtworkRecord, filesPrefix string) ArtworkList {
	out := ArtworkList{Items: make([]ArtworkResponse, 0, len(recs)), Count: len(recs)}
	for _, r := range recs {
		out.Items = append(out.Items, artworkResponse(r, filesPrefix))
	}
	return out
}

func statusResponse(p *status.Poller, cycle *schedule.Schedule, now time.Time) StatusResponse {
	if p == nil {
		return StatusResponse{State: "disabled"}
	}
	snap := p.Snapshot()
	return StatusResponse{
		State:     string(snap.State),
		Loading:   snap.Loading,
		Status:    snap.Doc,
		NextCycle: nextCycle(snap, cycle, now),
		LastError: snap.LastError,
		UpdatedAt: snap.UpdatedAt,
	}
}

// nextCycle is only meaningful while idle. The document's own value wins.
func nextCycle(snap status.Snapshot, cycle *schedule.Schedule, now time.Time) string {
	if snap.Doc == nil || snap.State != status.StateIdle {
		return ""
	}
	if snap.Doc.NextCycle != "" {
		return snap.Doc.NextCycle
	}
	if cycle == nil {
		return ""
	}
	return cycle.Until(now)
}
