package httpapi

import (
	"time"

	"github.com/dmitrijs2005/opacity/internal/server/models"
	"github.com/dmitrijs2005/opacity/internal/server/services"
)

type uploadResponse struct {
	ArchiveID string `json:"archiveId"`
	JWT       string `json:"jwt,omitempty"`
}

type archiveDimension struct {
	Name      string  `json:"name"`
	Emoji     *string `json:"emoji,omitempty"`
	QuizCount int64   `json:"quizCount"`
}

type archiveView struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	OwnerName  *string            `json:"ownerName"`
	UploadTime time.Time          `json:"uploadTime"`
	UpdateTime time.Time          `json:"updateTime"`
	Downloads  int64              `json:"downloads"`
	Likes      int64              `json:"likes"`
	Dimensions []archiveDimension `json:"dimensions"`
}

type pageView struct {
	Page []archiveView `json:"page"`
	Next string        `json:"next,omitempty"`
}

type dimensionView struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Emoji     *string `json:"emoji,omitempty"`
	QuizCount int64   `json:"quizCount"`
}

type likesView struct {
	Count  int64    `json:"count"`
	People []string `json:"people"`
}

type whoamiView struct {
	ClientName string  `json:"clientName"`
	Name       *string `json:"name"`
}

type previewView struct {
	Name    string `json:"name"`
	Preview string `json:"preview"`
}

func newArchiveView(a *models.ArchiveSummary) archiveView {
	v := archiveView{
		ID:         a.ID,
		Name:       a.Name,
		OwnerName:  a.OwnerName,
		UploadTime: a.UploadTime,
		UpdateTime: a.UpdateTime,
		Downloads:  a.Downloads,
		Likes:      a.Likes,
		Dimensions: make([]archiveDimension, 0, len(a.Dimensions)),
	}
	for _, d := range a.Dimensions {
		v.Dimensions = append(v.Dimensions, archiveDimension{Name: d.Name, Emoji: d.Emoji, QuizCount: d.QuizCount})
	}
	return v
}

func newPageView(p *services.Page) pageView {
	v := pageView{Page: make([]archiveView, 0, len(p.Items)), Next: p.Next}
	for _, a := range p.Items {
		v.Page = append(v.Page, newArchiveView(a))
	}
	return v
}
