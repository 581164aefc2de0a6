package video

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/prochartist/backend/core"
)

// DefaultUploader is recorded when a video is saved without naming its uploader.
const DefaultUploader = "admin"

// Video is a stand-alone lesson outside of the phased curriculum.
type Video struct {
	ID          int       `json:"id" bson:"id"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description" bson:"description"`
	Thumbnail   string    `json:"thumbnail" bson:"thumbnail"`
	VideoURL    string    `json:"videoUrl" bson:"videoUrl"`
	IsActive    bool      `json:"isActive" bson:"isActive"`
	UploadedBy  string    `json:"uploadedBy" bson:"uploadedBy"`
	UploadedAt  time.Time `json:"uploadedAt" bson:"uploadedAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// NewVideo contains information needed to create (or replace) a Video.
type NewVideo struct {
	ID          int    `json:"id" validate:"required,gt=0"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Thumbnail   string `json:"thumbnail"`
	VideoURL    string `json:"videoUrl"`
	IsActive    *bool  `json:"isActive"`
	UploadedBy  string `json:"uploadedBy"`
}

func (nv *NewVideo) Validate(validate *validator.Validate) error {
	nv.Title = core.CleanString(nv.Title)
	nv.Description = core.CleanString(nv.Description)
	nv.Thumbnail = core.CleanString(nv.Thumbnail)
	nv.VideoURL = core.CleanString(nv.VideoURL)
	nv.UploadedBy = core.CleanString(nv.UploadedBy)
	return validate.Struct(nv)
}

func (nv NewVideo) video() Video {
	v := Video{
		ID:          nv.ID,
		Title:       nv.Title,
		Description: nv.Description,
		Thumbnail:   nv.Thumbnail,
		VideoURL:    nv.VideoURL,
		IsActive:    true,
		UploadedBy:  nv.UploadedBy,
	}
	if nv.IsActive != nil {
		v.IsActive = *nv.IsActive
	}
	if v.UploadedBy == "" {
		v.UploadedBy = DefaultUploader
	}
	return v
}

// UpdateVideo defines what information may be provided to modify an existing Video.
type UpdateVideo struct {
	Title       *string `json:"title" validate:"omitempty,min=1"`
	Description *string `json:"description" validate:"omitempty,min=1"`
	Thumbnail   *string `json:"thumbnail"`
	VideoURL    *string `json:"videoUrl"`
	IsActive    *bool   `json:"isActive"`
}

func (uv *UpdateVideo) Validate(validate *validator.Validate) error {
	if uv.Title != nil {
		*uv.Title = core.CleanString(*uv.Title)
	}
	if uv.Description != nil {
		*uv.Description = core.CleanString(*uv.Description)
	}
	return validate.Struct(uv)
}

func (uv UpdateVideo) Apply(v *Video) {
	if uv.Title != nil {
		v.Title = *uv.Title
	}
	if uv.Description != nil {
		v.Description = *uv.Description
	}
	if uv.Thumbnail != nil {
		v.Thumbnail = *uv.Thumbnail
	}
	if uv.VideoURL != nil {
		v.VideoURL = *uv.VideoURL
	}
	if uv.IsActive != nil {
		v.IsActive = *uv.IsActive
	}
}

// BulkUpdate carries the full list of videos to save at once.
type BulkUpdate struct {
	Videos []NewVideo `json:"videos" validate:"required,dive"`
}

func (bu *BulkUpdate) Validate(validate *validator.Validate) error {
	for i := range bu.Videos {
		if err := bu.Videos[i].Validate(validate); err != nil {
			return err
		}
	}
	return validate.Struct(bu)
}
