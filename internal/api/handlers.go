package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/SlenderjuniorxD/UPDS-TIM/internal/config"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/extract"
	redisInfra "github.com/SlenderjuniorxD/UPDS-TIM/internal/infra/redis"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/models"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/notify"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/repository"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/storage"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/stream"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/vetting"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
)

// Handler holds dependencies for handlers
type Handler struct {
	cfg               *config.Config
	submissionsRepo   *repository.SubmissionsRepository
	notificationsRepo *repository.NotificationsRepository
	vettingSvc        *vetting.Service
	vettingStatus     *vetting.RedisStatus
	notifier          *notify.Service
	fileStore         *storage.Client
	extractor         *extract.Client
	redisClient       *redisInfra.Client
	vetSem            chan struct{} // Semaphore for bounded concurrency
	vetTimeout        time.Duration
}

func NewHandler(
	cfg *config.Config,
	submissionsRepo *repository.SubmissionsRepository,
	notificationsRepo *repository.NotificationsRepository,
	vettingSvc *vetting.Service,
	vettingStatus *vetting.RedisStatus,
	notifier *notify.Service,
	fileStore *storage.Client,
	extractor *extract.Client,
	redisClient *redisInfra.Client,
) *Handler {
	return &Handler{
		cfg:               cfg,
		submissionsRepo:   submissionsRepo,
		notificationsRepo: notificationsRepo,
		vettingSvc:        vettingSvc,
		vettingStatus:     vettingStatus,
		notifier:          notifier,
		fileStore:         fileStore,
		extractor:         extractor,
		redisClient:       redisClient,
		vetSem:            make(chan struct{}, cfg.MaxConcurrentVetting),
		vetTimeout:        cfg.VettingTimeout,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

// CreateSubmissionRequest is the payload for a new draft submission.
type CreateSubmissionRequest struct {
	StudentID   string `json:"studentId" binding:"required"`
	StudentName string `json:"studentName"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

func (h *Handler) CreateSubmission(c *gin.Context) {
	var req CreateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	submission := &models.Submission{
		StudentID:       req.StudentID,
		StudentName:     req.StudentName,
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Status:          models.StatusDraft,
		VirusScanStatus: models.ScanPending,
	}

	id, err := h.submissionsRepo.Insert(c.Request.Context(), submission)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create submission")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to create submission",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// UploadFile stores a new file version, extracts its text and publishes an
// upload event so the vetting pipeline picks the submission up.
func (h *Handler) UploadFile(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	submission, err := h.submissionsRepo.GetByID(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("submissionId", id).Msg("Failed to load submission")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to load submission",
			Code:  "INTERNAL_ERROR",
		})
		return
	}
	if submission == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "Submission not found",
			Code:  "SUBMISSION_NOT_FOUND",
		})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "A file is required",
			Code:  "FILE_REQUIRED",
		})
		return
	}
	defer file.Close()

	uploaded, err := h.fileStore.Upload(ctx, header.Filename, "proyectos/"+id, file)
	if err != nil {
		log.Error().Err(err).Str("submissionId", id).Msg("Failed to upload file")
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error: "Failed to store file",
			Code:  "UPLOAD_FAILED",
		})
		return
	}

	// Extraction failure is not fatal: a submission without text is simply
	// excluded from the plagiarism corpus and scores 0 on content.
	textContent := ""
	extracted, err := h.extractor.Extract(ctx, &extract.ExtractRequest{
		FileURL:  uploaded.URL,
		FileName: header.Filename,
	})
	if err != nil {
		log.Warn().Err(err).Str("submissionId", id).Msg("Text extraction failed")
	} else {
		textContent = extracted.Text
	}

	err = h.submissionsRepo.UpdateFields(ctx, id, bson.M{
		"fileUrl":          uploaded.URL,
		"filePath":         uploaded.Path,
		"originalFileName": header.Filename,
		"deleteToken":      uploaded.DeleteToken,
		"textContent":      textContent,
		"status":           models.StatusUploaded,
		"virusScanStatus":  models.ScanPending,
	})
	if err != nil {
		log.Error().Err(err).Str("submissionId", id).Msg("Failed to update submission after upload")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to update submission",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	version := models.FileVersion{
		FileURL:    uploaded.URL,
		FilePath:   uploaded.Path,
		FileName:   header.Filename,
		Comment:    c.PostForm("comment"),
		UploadedAt: time.Now(),
	}
	if err := h.submissionsRepo.AppendVersion(ctx, id, version); err != nil {
		log.Error().Err(err).Str("submissionId", id).Msg("Failed to append file version")
	}

	h.publishUploadEvent(ctx, &models.VetRequest{
		SubmissionID: id,
		FileURL:      uploaded.URL,
		Title:        submission.Title,
		Description:  submission.Description,
		TextContent:  textContent,
		DeleteToken:  uploaded.DeleteToken,
		StudentID:    submission.StudentID,
	})

	c.JSON(http.StatusOK, gin.H{
		"id":      id,
		"fileUrl": uploaded.URL,
		"status":  models.StatusUploaded,
	})
}

func (h *Handler) publishUploadEvent(ctx context.Context, req *models.VetRequest) {
	err := h.redisClient.XAdd(ctx, &redis.XAddArgs{
		Stream: h.cfg.RedisStreamKey,
		Values: stream.UploadEventFields(req),
	}).Err()
	if err != nil {
		log.Error().Err(err).
			Str("submissionId", req.SubmissionID).
			Msg("Failed to publish upload event")
	}
}

// Vet triggers the vetting pipeline for an already uploaded submission. The
// request is accepted and processed asynchronously; progress is readable via
// the vetting-status endpoint.
func (h *Handler) Vet(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	submission, err := h.submissionsRepo.GetByID(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("submissionId", id).Msg("Failed to load submission")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to load submission",
			Code:  "INTERNAL_ERROR",
		})
		return
	}
	if submission == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "Submission not found",
			Code:  "SUBMISSION_NOT_FOUND",
		})
		return
	}
	if submission.FileURL == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Submission has no uploaded file",
			Code:  "FILE_REQUIRED",
		})
		return
	}

	// Acquire semaphore (bounded concurrency)
	select {
	case h.vetSem <- struct{}{}:
	case <-ctx.Done():
		c.JSON(http.StatusRequestTimeout, ErrorResponse{
			Error: "Request cancelled",
			Code:  "REQUEST_TIMEOUT",
		})
		return
	}

	c.JSON(http.StatusAccepted, models.VetAcceptedResponse{
		Step:         models.StepSubmitted,
		SubmissionID: id,
	})

	go h.processVetting(models.VetRequest{
		SubmissionID: submission.ID,
		FileURL:      submission.FileURL,
		Title:        submission.Title,
		Description:  submission.Description,
		TextContent:  submission.TextContent,
		DeleteToken:  submission.DeleteToken,
		StudentID:    submission.StudentID,
	})
}

// processVetting runs the pipeline asynchronously
func (h *Handler) processVetting(req models.VetRequest) {
	defer func() { <-h.vetSem }() // Release semaphore

	ctx, cancel := context.WithTimeout(context.Background(), h.vetTimeout)
	defer cancel()

	result, err := h.vettingSvc.Vet(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("submissionId", req.SubmissionID).Msg("Vetting failed")
		return
	}

	log.Debug().
		Str("submissionId", req.SubmissionID).
		Str("outcome", string(result.Status)).
		Int("score", result.Score).
		Msg("Vetting completed")
}

func (h *Handler) GetSubmission(c *gin.Context) {
	id := c.Param("id")

	submission, err := h.submissionsRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("submissionId", id).Msg("Failed to load submission")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to load submission",
			Code:  "INTERNAL_ERROR",
		})
		return
	}
	if submission == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "Submission not found",
			Code:  "SUBMISSION_NOT_FOUND",
		})
		return
	}

	c.JSON(http.StatusOK, submission)
}

// ListSubmissions serves the dashboard views: by student, by evaluator, by
// career category, or the public approved listing.
func (h *Handler) ListSubmissions(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		submissions []*models.Submission
		err         error
	)

	switch {
	case c.Query("studentId") != "":
		submissions, err = h.submissionsRepo.ListByStudent(ctx, c.Query("studentId"))
	case c.Query("evaluatorId") != "":
		submissions, err = h.submissionsRepo.ListByEvaluator(ctx, c.Query("evaluatorId"))
	case c.Query("category") != "":
		submissions, err = h.submissionsRepo.ListByCategory(ctx, c.Query("category"))
	case c.Query("status") == string(models.StatusApproved):
		submissions, err = h.submissionsRepo.ListApproved(ctx)
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "One of studentId, evaluatorId, category or status=approved is required",
			Code:  "FILTER_REQUIRED",
		})
		return
	}

	if err != nil {
		log.Error().Err(err).Msg("Failed to list submissions")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to list submissions",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	if submissions == nil {
		submissions = []*models.Submission{}
	}
	c.JSON(http.StatusOK, submissions)
}

// AssignEvaluatorRequest assigns a reviewer to a submission.
type AssignEvaluatorRequest struct {
	EvaluatorID   string `json:"evaluatorId" binding:"required"`
	EvaluatorName string `json:"evaluatorName"`
}

func (h *Handler) AssignEvaluator(c *gin.Context) {
	id := c.Param("id")

	var req AssignEvaluatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	err := h.submissionsRepo.UpdateFields(c.Request.Context(), id, bson.M{
		"evaluatorId":   req.EvaluatorID,
		"evaluatorName": req.EvaluatorName,
		"status":        models.StatusUnderReview,
		"assignedAt":    time.Now(),
	})
	if err != nil {
		log.Error().Err(err).Str("submissionId", id).Msg("Failed to assign evaluator")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to assign evaluator",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "evaluatorId": req.EvaluatorID})
}

// GradeRequest carries an evaluator's rubric verdict.
type GradeRequest struct {
	RubricScores map[string]int `json:"rubricScores"`
	FinalGrade   *int           `json:"finalGrade" binding:"required"`
	Feedback     string         `json:"feedback"`
}

// approvalGrade is the minimum passing final grade.
const approvalGrade = 51

func (h *Handler) GradeSubmission(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	var req GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	submission, err := h.submissionsRepo.GetByID(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("submissionId", id).Msg("Failed to load submission")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to load submission",
			Code:  "INTERNAL_ERROR",
		})
		return
	}
	if submission == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "Submission not found",
			Code:  "SUBMISSION_NOT_FOUND",
		})
		return
	}

	grade := *req.FinalGrade
	newStatus := models.StatusFlagged
	if grade >= approvalGrade {
		newStatus = models.StatusApproved
	}

	err = h.submissionsRepo.UpdateFields(ctx, id, bson.M{
		"rubricScores": req.RubricScores,
		"finalGrade":   grade,
		"feedback":     req.Feedback,
		"status":       newStatus,
		"gradedAt":     time.Now(),
	})
	if err != nil {
		log.Error().Err(err).Str("submissionId", id).Msg("Failed to grade submission")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to grade submission",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	title := "Project flagged"
	notifType := models.NotifyWarning
	if newStatus == models.StatusApproved {
		title = "Project approved"
		notifType = models.NotifySuccess
	}
	h.notifier.Send(ctx, submission.StudentID, title,
		"Your evaluator graded your thesis "+gradeMessage(grade), notifType)

	c.JSON(http.StatusOK, gin.H{"id": id, "status": newStatus, "finalGrade": grade})
}

func gradeMessage(grade int) string {
	return "with a final grade of " + strconv.Itoa(grade) + "/100."
}

// VettingStatus reads the last published pipeline step for a submission.
func (h *Handler) VettingStatus(c *gin.Context) {
	id := c.Param("id")

	step, err := h.vettingStatus.Current(c.Request.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("submissionId", id).Msg("Failed to read vetting status")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to read vetting status",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"submissionId": id, "step": step})
}

func (h *Handler) ListNotifications(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "userId is required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	notifications, err := h.notificationsRepo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("userId", userID).Msg("Failed to list notifications")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to list notifications",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	if notifications == nil {
		notifications = []*models.Notification{}
	}
	c.JSON(http.StatusOK, notifications)
}
