package handlers

import (
	"net/http"

	"studio/internal/agent"
	"studio/internal/domain"
)

type attachUploadRequest struct {
	Path string `json:"path"`
}

type attachGalleryRequest struct {
	URL string `json:"url"`
}

type referenceModeRequest struct {
	Mode domain.ReferenceImageMode `json:"mode"`
}

type referenceView struct {
	Attached     bool                      `json:"attached"`
	UploadedPath string                    `json:"uploaded_path,omitempty"`
	GalleryURL   string                    `json:"gallery_url,omitempty"`
	Mode         domain.ReferenceImageMode `json:"mode,omitempty"`
}

func newReferenceView(state agent.ReferenceState) referenceView {
	return referenceView{
		Attached:     state.UploadedPath != "" || state.GalleryURL != "",
		UploadedPath: state.UploadedPath,
		GalleryURL:   state.GalleryURL,
		Mode:         state.Mode,
	}
}

func (a *App) AttachUpload(w http.ResponseWriter, r *http.Request) {
	var req attachUploadRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.Path == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "path required")
		return
	}
	a.Session.AttachUpload(req.Path)
	a.json(w, http.StatusOK, newReferenceView(a.Session.ReferenceState()))
}

func (a *App) AttachGallery(w http.ResponseWriter, r *http.Request) {
	var req attachGalleryRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.URL == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "url required")
		return
	}
	a.Session.PickGalleryImage(req.URL)
	a.json(w, http.StatusOK, newReferenceView(a.Session.ReferenceState()))
}

func (a *App) SetReferenceMode(w http.ResponseWriter, r *http.Request) {
	var req referenceModeRequest
	if !a.decode(w, r, &req) {
		return
	}
	switch req.Mode {
	case domain.RefModeFaceSwap, domain.RefModePoseBackground, domain.RefModeClothingPose, domain.RefModeCustom:
	default:
		a.error(w, http.StatusBadRequest, "bad_request", "unknown reference mode")
		return
	}
	a.Session.SetReferenceMode(req.Mode)
	a.json(w, http.StatusOK, newReferenceView(a.Session.ReferenceState()))
}

func (a *App) ClearReference(w http.ResponseWriter, r *http.Request) {
	a.Session.ClearReference()
	a.json(w, http.StatusOK, newReferenceView(a.Session.ReferenceState()))
}

func (a *App) GetReference(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, newReferenceView(a.Session.ReferenceState()))
}
