package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/adcanvas/adapt-agent/internal/catalog"
	"github.com/adcanvas/adapt-agent/internal/config"
	"github.com/adcanvas/adapt-agent/internal/format"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Get("/formats", listFormatsHandler(cfg))

		r.Get("/assets", listAssetsHandler(cfg))
		r.Post("/assets", uploadAssetHandler(cfg))
		r.Get("/assets/{id}", getAssetHandler(cfg))
		r.Get("/assets/{id}/thumbnail", assetThumbnailHandler(cfg))
		r.Get("/assets/{id}/preview", assetPreviewHandler(cfg))

		r.Post("/adaptations", createAdaptationHandler(cfg))
		r.Get("/jobs", listJobsHandler(cfg))
		r.Get("/jobs/{id}", getJobHandler(cfg))
		r.Get("/jobs/{id}/renditions", listRenditionsHandler(cfg))
		r.Get("/jobs/{id}/archive", jobArchiveHandler(cfg))
		r.Get("/renditions/{id}/download", downloadRenditionHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: config.Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		assetsCount, _ := cfg.Service.CountAssets(ctx)
		renditionsCount, _ := cfg.Service.CountRenditions(ctx)
		jobs, _ := cfg.Repository.ListJobs(ctx, 10)

		state := "idle"
		var activeJob *JobResponse
		jobsRunning := 0
		lastError := ""

		if cfg.Runner != nil && cfg.Runner.IsPaused() {
			state = "paused"
		}

		for _, j := range jobs {
			if j.Status == catalog.JobStatusRunning {
				state = "adapting"
				resp := JobToResponse(j)
				activeJob = &resp
				jobsRunning++
			}
			if j.Status == catalog.JobStatusFailed && lastError == "" {
				lastError = j.Error
			}
		}

		if lastError != "" && state == "idle" {
			state = "error"
		}

		resp := StatusResponse{
			State:           state,
			LastError:       lastError,
			AssetsCount:     assetsCount,
			RenditionsCount: renditionsCount,
			JobsRunning:     jobsRunning,
			ActiveJob:       activeJob,
			Detector:        cfg.DetectorName,
		}

		if cfg.Capabilities != nil {
			resp.Backend = &BackendState{
				FFmpegAvailable:  cfg.Capabilities.FFmpegAvailable,
				FFprobeAvailable: cfg.Capabilities.FFprobeAvailable,
				Version:          cfg.Capabilities.Version,
			}
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func listFormatsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profiles := format.All()
		if aspect := r.URL.Query().Get("aspect"); aspect != "" {
			profiles = format.ByAspect(aspect)
		}

		resp := FormatsResponse{Formats: make([]FormatResponse, len(profiles))}
		for i, p := range profiles {
			resp.Formats[i] = FormatToResponse(p)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func listAssetsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assets, err := cfg.Service.Assets(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list assets", "INTERNAL_ERROR")
			return
		}

		resp := AssetsResponse{Assets: make([]AssetResponse, len(assets))}
		for i, a := range assets {
			resp.Assets[i] = AssetToResponse(a)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getAssetHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		asset, err := cfg.Service.Asset(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if asset == nil {
			WriteError(w, http.StatusNotFound, "asset not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, AssetToResponse(asset))
	}
}

func assetThumbnailHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		asset, err := cfg.Service.Asset(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if asset == nil {
			WriteError(w, http.StatusNotFound, "asset not found", "NOT_FOUND")
			return
		}
		if asset.ThumbnailPath == "" {
			WriteError(w, http.StatusNotFound, "no thumbnail for asset", "NOT_FOUND")
			return
		}

		w.Header().Set("Content-Type", "image/jpeg")
		http.ServeFile(w, r, asset.ThumbnailPath)
	}
}

func assetPreviewHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		asset, err := cfg.Service.Asset(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if asset == nil {
			WriteError(w, http.StatusNotFound, "asset not found", "NOT_FOUND")
			return
		}

		previewPath, err := cfg.Service.AssetPreview(r.Context(), asset.ID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "preview generation failed", "INTERNAL_ERROR")
			return
		}

		w.Header().Set("Content-Type", "video/mp4")
		http.ServeFile(w, r, previewPath)
	}
}

func createAdaptationHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAdaptationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.AssetID == "" {
			WriteError(w, http.StatusBadRequest, "asset_id is required", "BAD_REQUEST")
			return
		}

		job, err := cfg.Service.CreateAdaptation(r.Context(), req.AssetID, catalog.AdaptationParams{
			FormatKeys:      req.FormatKeys,
			CustomFormats:   req.CustomFormats,
			Mode:            req.Mode,
			BlurBackground:  req.BlurBackground,
			LegibilityBoost: req.LegibilityBoost,
			AIGuidedCrop:    req.AIGuidedCrop,
		})
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusAccepted, CreateAdaptationResponse{JobID: job.ID})
	}
}

func listJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := cfg.Repository.ListJobs(r.Context(), 50)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list jobs", "INTERNAL_ERROR")
			return
		}

		resp := JobsResponse{Jobs: make([]JobResponse, len(jobs))}
		for i, j := range jobs {
			resp.Jobs[i] = JobToResponse(j)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := cfg.Repository.GetJob(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if job == nil {
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, JobToResponse(job))
	}
}

func listRenditionsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "id")
		job, err := cfg.Repository.GetJob(r.Context(), jobID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if job == nil {
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		}

		renditions, err := cfg.Service.JobRenditions(r.Context(), jobID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		resp := RenditionsResponse{Renditions: make([]RenditionResponse, len(renditions))}
		for i, rd := range renditions {
			resp.Renditions[i] = RenditionToResponse(rd)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func downloadRenditionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rendition, err := cfg.Service.Rendition(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if rendition == nil {
			WriteError(w, http.StatusNotFound, "rendition not found", "NOT_FOUND")
			return
		}

		w.Header().Set("Content-Type", "video/mp4")
		http.ServeFile(w, r, rendition.Path)
	}
}

func jobArchiveHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := cfg.Repository.GetJob(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if job == nil {
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		}
		if job.Status != catalog.JobStatusCompleted {
			WriteError(w, http.StatusConflict, "job has not completed", "NOT_READY")
			return
		}

		asset, err := cfg.Service.Asset(r.Context(), job.AssetID)
		if err != nil || asset == nil {
			WriteError(w, http.StatusNotFound, "asset not found", "NOT_FOUND")
			return
		}

		w.Header().Set("Content-Type", "application/zip")
		http.ServeFile(w, r, cfg.Service.ArchivePath(asset, job))
	}
}
