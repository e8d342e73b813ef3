package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"shapeshift3d/internal/logger"
	"shapeshift3d/internal/middleware"
	"shapeshift3d/internal/models"
	"shapeshift3d/internal/services"
)

const invalidTypeMessage = "Invalid file type. Please upload PNG, JPG, JPEG, GIF, or WebP files."

// ShowDashboard показывает модели пользователя.
func (h *Handler) ShowDashboard(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	h.render(c, http.StatusOK, "dashboard.html", gin.H{"title": "Dashboard", "models": h.userModels(c, id)})
}

// ShowModels показывает список моделей пользователя.
func (h *Handler) ShowModels(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	h.render(c, http.StatusOK, "models.html", gin.H{"title": "My Models", "models": h.userModels(c, id)})
}

// userModels при ошибке хранилища отдает пустой список, страница все равно отрисовывается.
func (h *Handler) userModels(c *gin.Context, id middleware.Identity) []models.Model {
	list, err := h.catalog.ListByUser(c.Request.Context(), id.UserID)
	if err != nil {
		logger.L.Error().Err(err).Str("user_id", id.UserID).Msg("ошибка получения списка моделей")
		return []models.Model{}
	}
	return list
}

// ShowUploadPage отображает форму загрузки изображения.
func (h *Handler) ShowUploadPage(c *gin.Context) {
	h.render(c, http.StatusOK, "upload.html", h.uploadPageData())
}

// uploadPageData - данные страницы загрузки: лимит размера для подсказки и проверки в браузере.
func (h *Handler) uploadPageData() gin.H {
	return gin.H{
		"title":          "Upload",
		"maxUpload":      middleware.FormatSize(h.maxUpload),
		"maxUploadBytes": h.maxUpload,
	}
}

// HandleUpload принимает файл из поля "file" и создает модель типа upload.
func (h *Handler) HandleUpload(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		if middleware.IsTooLarge(err) {
			h.metrics.UploadRejected("too_large")
			middleware.RejectTooLarge(c)
			return
		}
		if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
			logger.L.Warn().Err(err).Str("user_id", id.UserID).Msg("ошибка разбора формы загрузки")
		}
		h.noFile(c)
		return
	}
	if fileHeader.Filename == "" {
		h.noFile(c)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.L.Error().Err(err).Str("file", fileHeader.Filename).Msg("ошибка открытия загруженного файла")
		middleware.AddFlash(c, middleware.FlashError, "Could not read the uploaded file.")
		c.Redirect(http.StatusFound, "/upload")
		return
	}
	defer file.Close()

	modelName := strings.TrimSpace(c.PostForm("model_name"))
	modelID, err := h.intake.SaveUpload(c.Request.Context(), id.UserID, modelName, fileHeader.Filename, file)
	switch {
	case errors.Is(err, services.ErrFileType):
		h.metrics.UploadRejected("file_type")
		logger.L.Info().Str("user_id", id.UserID).Str("file", fileHeader.Filename).Msg("отклонен файл с недопустимым расширением")
		h.render(c, http.StatusBadRequest, "upload.html", h.uploadPageData(), errorFlash(invalidTypeMessage))
		return
	case errors.Is(err, services.ErrNoFile):
		h.noFile(c)
		return
	case err != nil:
		logger.L.Error().Err(err).Str("user_id", id.UserID).Msg("ошибка сохранения загрузки")
		middleware.AddFlash(c, middleware.FlashError, "An error occurred while processing your file.")
		c.Redirect(http.StatusFound, "/upload")
		return
	}

	h.metrics.ModelCreated(models.ModelTypeUpload)
	logger.L.Debug().Str("model_id", modelID).Msg("модель из загрузки создана")
	middleware.AddFlash(c, middleware.FlashSuccess, "Model generated successfully!")
	c.Redirect(http.StatusFound, "/models")
}

// noFile отвечает флешем "No file selected" и возвращает на форму загрузки.
func (h *Handler) noFile(c *gin.Context) {
	h.metrics.UploadRejected("no_file")
	middleware.AddFlash(c, middleware.FlashError, "No file selected")
	c.Redirect(http.StatusFound, "/upload")
}

// ShowDrawPage отображает холст для рисования.
func (h *Handler) ShowDrawPage(c *gin.Context) {
	h.render(c, http.StatusOK, "draw.html", gin.H{"title": "Draw"})
}

// HandleDraw принимает data URL холста из поля canvas_data и отвечает JSON.
func (h *Handler) HandleDraw(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	// ParseForm читает urlencoded-тело; ParseMultipartForm теряет его ошибку
	// и возвращает ErrNotMultipart, поэтому превышение лимита проверяется здесь.
	if err := c.Request.ParseForm(); err != nil {
		h.rejectCanvasForm(c, err)
		return
	}
	if err := c.Request.ParseMultipartForm(MultipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.rejectCanvasForm(c, err)
		return
	}

	canvasData := c.PostForm("canvas_data")
	modelName := strings.TrimSpace(c.PostForm("model_name"))

	modelID, err := h.intake.SaveDrawing(c.Request.Context(), id.UserID, modelName, canvasData)
	switch {
	case errors.Is(err, services.ErrNoCanvasData):
		h.metrics.UploadRejected("no_canvas")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No canvas data received"})
		return
	case errors.Is(err, services.ErrMalformedCanvas):
		h.metrics.UploadRejected("malformed_canvas")
		logger.L.Info().Err(err).Str("user_id", id.UserID).Msg("некорректные данные холста")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid canvas data"})
		return
	case err != nil:
		logger.L.Error().Err(err).Str("user_id", id.UserID).Msg("ошибка сохранения рисунка")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to save drawing"})
		return
	}

	h.metrics.ModelCreated(models.ModelTypeDraw)
	c.JSON(http.StatusOK, gin.H{"success": true, "model_id": modelID})
}

// rejectCanvasForm отвечает на ошибку разбора формы рисунка: превышение лимита
// обрабатывается как у загрузки, прочее - 400 в JSON.
func (h *Handler) rejectCanvasForm(c *gin.Context, err error) {
	if middleware.IsTooLarge(err) {
		h.metrics.UploadRejected("too_large")
		middleware.RejectTooLarge(c)
		return
	}
	logger.L.Info().Err(err).Msg("ошибка разбора формы рисунка")
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid form data"})
}
