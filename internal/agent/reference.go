package agent

import (
	"strings"

	"studio/internal/domain"
)

// DefaultReferenceMode is applied whenever an image source is attached or
// switched without an explicit mode choice.
const DefaultReferenceMode = domain.RefModePoseBackground

// ResolvedReference is the directive emitted to the request builder. A zero
// value means no reference is sent.
type ResolvedReference struct {
	Path string
	Mode domain.ReferenceImageMode
}

// ReferenceState is a snapshot of the current attachment for display.
type ReferenceState struct {
	UploadedPath string
	GalleryURL   string
	Mode         domain.ReferenceImageMode
}

// Reference resolves how an attached image influences generation. An
// uploaded file and a gallery pick are mutually exclusive sources; attaching
// one clears the other and resets the mode to the default.
type Reference struct {
	uploadedPath string
	galleryURL   string
	mode         domain.ReferenceImageMode
}

// AttachUpload attaches a freshly uploaded image by its server-assigned
// relative path.
func (r *Reference) AttachUpload(path string) {
	r.uploadedPath = path
	r.galleryURL = ""
	r.mode = DefaultReferenceMode
}

// PickGallery attaches a gallery image by its canonical URL.
func (r *Reference) PickGallery(url string) {
	r.galleryURL = url
	r.uploadedPath = ""
	r.mode = DefaultReferenceMode
}

// SetMode selects how the attached image constrains generation.
func (r *Reference) SetMode(mode domain.ReferenceImageMode) {
	r.mode = mode
}

// Clear detaches any image source.
func (r *Reference) Clear() {
	*r = Reference{}
}

// Attached reports whether an image source is set.
func (r *Reference) Attached() bool {
	return r.uploadedPath != "" || r.galleryURL != ""
}

// State returns a display snapshot of the attachment.
func (r *Reference) State() ReferenceState {
	return ReferenceState{UploadedPath: r.uploadedPath, GalleryURL: r.galleryURL, Mode: r.mode}
}

// Resolve validates the attachment against the accompanying message and
// returns the directive to send. Custom mode requires a non-empty
// instruction; the other modes do not.
func (r *Reference) Resolve(message string) (ResolvedReference, error) {
	if !r.Attached() {
		return ResolvedReference{}, nil
	}
	mode := r.mode
	if mode == "" {
		mode = DefaultReferenceMode
	}
	if mode == domain.RefModeCustom && strings.TrimSpace(message) == "" {
		return ResolvedReference{}, domain.ErrInstructionRequired
	}
	path := r.uploadedPath
	if path == "" {
		path = r.galleryURL
	}
	return ResolvedReference{Path: path, Mode: mode}, nil
}
