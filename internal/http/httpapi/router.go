package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"studio/internal/http/handlers"
	"studio/internal/middleware"
)

type Options struct {
	DefaultLocale  string
	AllowedOrigins []string
	UploadsDir     string
}

func NewRouter(app *handlers.App, opts Options) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.I18N(opts.DefaultLocale),
	)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(opts.AllowedOrigins))
	}

	r.Get("/v1/healthz", app.Health)

	r.Route("/agent", func(r chi.Router) {
		r.Post("/chat", app.Chat)
		r.Post("/confirm", app.Confirm)
		r.Post("/cancel", app.Cancel)
		r.Post("/clear", app.Clear)
		r.Get("/transcript", app.Transcript)

		r.Route("/reference", func(r chi.Router) {
			r.Get("/", app.GetReference)
			r.Post("/upload", app.AttachUpload)
			r.Post("/upload-file", app.UploadReferenceFile)
			r.Post("/gallery", app.AttachGallery)
			r.Post("/mode", app.SetReferenceMode)
			r.Delete("/", app.ClearReference)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", app.ListTasks)
			r.Get("/{taskID}", app.GetTask)
			r.Delete("/{taskID}", app.ReleaseTask)
		})

		r.Get("/export", app.Export)

		r.Route("/image-edit", func(r chi.Router) {
			r.Post("/", app.EditChat)
			r.Post("/confirm", app.EditConfirm)
			r.Post("/direct", app.DirectEdit)
			r.Post("/save", app.SaveEdit)
		})
	})

	r.Route("/animate", func(r chi.Router) {
		r.Post("/analyze", app.AnalyzeImage)
		r.Post("/generate", app.Animate)
	})

	if opts.UploadsDir != "" {
		fs := stdhttp.FileServer(stdhttp.Dir(opts.UploadsDir))
		r.Handle("/uploads/*", stdhttp.StripPrefix("/uploads/", fs))
	}

	return r
}
