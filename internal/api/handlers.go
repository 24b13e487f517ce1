package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dmitriimaksimovdevelop/cocoscan/internal/model"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/orchestrator"
)

var allowedExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// handleDiagnose accepts a multipart "image" and optional "user_id", "notes",
// "location" and "weather" fields. With user_id the scan is persisted.
func (s *Server) handleDiagnose(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image exceeds the upload limit"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image file provided"})
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExt[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unsupported image format %q", ext)})
		return
	}

	var userID *int64
	if raw := c.PostForm("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id must be an integer"})
			return
		}
		userID = &id
	}

	ctx := c.Request.Context()
	var r *model.DiagnosisResult
	if s.opts.UploadDir != "" {
		path, err := s.saveUpload(c, header.Filename, ext)
		if err != nil {
			s.logger.Error("save upload failed", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save image"})
			return
		}
		r = s.engine.Diagnose(ctx, path)
	} else {
		r = s.engine.DiagnoseReader(ctx, file, header.Filename)
	}

	resp := gin.H{
		"diagnosis":    r,
		"health_score": model.ComputeHealthScore(r),
	}
	if userID != nil {
		scanID, err := s.engine.Persist(ctx, r, *userID, orchestrator.ScanMeta{
			Notes:    c.PostForm("notes"),
			Location: c.PostForm("location"),
			Weather:  c.PostForm("weather"),
		})
		if scanID > 0 {
			resp["scan_id"] = scanID
		}
		if err != nil {
			resp["persist_error"] = err.Error()
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) saveUpload(c *gin.Context, original, ext string) (string, error) {
	if err := os.MkdirAll(s.opts.UploadDir, 0755); err != nil {
		return "", err
	}
	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	path := filepath.Join(s.opts.UploadDir, base+"_"+uuid.NewString()[:8]+ext)
	header, err := c.FormFile("image")
	if err != nil {
		return "", err
	}
	return path, c.SaveUploadedFile(header, path)
}

func (s *Server) handleListScans(c *gin.Context) {
	repo := s.engine.Repository()
	if repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scan history is not configured"})
		return
	}
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id query parameter is required"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	scans, err := repo.UserScans(c.Request.Context(), userID, limit)
	if err != nil {
		s.logger.Error("list scans failed", "user_id", userID, "err", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to retrieve scans"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scans": scans, "count": len(scans)})
}

func (s *Server) handleDeleteScan(c *gin.Context) {
	repo := s.engine.Repository()
	if repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scan history is not configured"})
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid scan id"})
		return
	}
	var userID *int64
	if raw := c.Query("user_id"); raw != "" {
		uid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id must be an integer"})
			return
		}
		userID = &uid
	}

	deleted, err := repo.DeleteScan(c.Request.Context(), id, userID)
	if err != nil {
		s.logger.Error("delete scan failed", "scan_id", id, "err", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to delete scan"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Scan not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Scan deleted successfully"})
}

func (s *Server) handleStatistics(c *gin.Context) {
	repo := s.engine.Repository()
	if repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scan history is not configured"})
		return
	}
	var userID *int64
	if raw := c.Query("user_id"); raw != "" {
		uid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id must be an integer"})
			return
		}
		userID = &uid
	}

	stats, err := repo.Statistics(c.Request.Context(), userID)
	if err != nil {
		s.logger.Error("statistics failed", "err", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to compute statistics"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleListDiseases(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"diseases": s.engine.Catalog().Diseases()})
}

func (s *Server) handleGetDisease(c *gin.Context) {
	d, ok := s.engine.Catalog().Lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Disease not found"})
		return
	}
	c.JSON(http.StatusOK, d)
}

// handleTreatment plans treatment for ?disease=, with optional comma-separated
// ?nutrients= and ?quality=.
func (s *Server) handleTreatment(c *gin.Context) {
	label := c.Query("disease")
	cat := s.engine.Catalog()
	if label == "" || model.ResolveStage(cat, label) == model.StageUnknown {
		c.JSON(http.StatusBadRequest, gin.H{"error": "disease must be a catalog disease or a tier label"})
		return
	}
	nutrients, err := model.ParseNutrients(c.Query("nutrients"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	quality := model.QualityMetrics{QualityLevel: model.QualityLevel(c.DefaultQuery("quality", string(model.QualityGood)))}
	c.JSON(http.StatusOK, model.PlanTreatment(cat, label, nutrients, quality))
}

func (s *Server) handleProgression(c *gin.Context) {
	stage := model.ResolveStage(s.engine.Catalog(), c.Param("stage"))
	if stage == model.StageUnknown {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown stage"})
		return
	}
	c.JSON(http.StatusOK, model.PredictProgression(stage))
}
