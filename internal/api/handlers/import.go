package handlers

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/athebyme/catalog-service/internal/domain/services"
	"github.com/athebyme/catalog-service/pkg/interfaces"
)

// maxUploadSize ограничивает размер multipart формы при загрузке CSV
const maxUploadSize = 64 << 20

// ImportHandler обработчик запросов пакетного импорта
type ImportHandler struct {
	queue     *services.ImportQueue
	tracker   *services.ProgressTracker
	uploadDir string
	logger    interfaces.LoggerPort
}

// NewImportHandler создает новый обработчик импорта
func NewImportHandler(queue *services.ImportQueue, tracker *services.ProgressTracker, uploadDir string, logger interfaces.LoggerPort) *ImportHandler {
	return &ImportHandler{
		queue:     queue,
		tracker:   tracker,
		uploadDir: uploadDir,
		logger:    logger,
	}
}

// UploadCSV принимает CSV файл, сохраняет его в каталог загрузок и
// ставит задание импорта в очередь. Ответ содержит task_id для
// последующего опроса прогресса
func (h *ImportHandler) UploadCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{
			Error:   "bad_request",
			Code:    http.StatusBadRequest,
			Message: "Некорректная multipart форма",
		})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{
			Error:   "bad_request",
			Code:    http.StatusBadRequest,
			Message: "Файл не передан",
		})
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{
			Error:   "validation_error",
			Code:    http.StatusBadRequest,
			Message: "Поддерживаются только CSV файлы",
		})
		return
	}

	filePath, err := h.saveUpload(file)
	if err != nil {
		h.logger.ErrorWithContext(r.Context(), "Ошибка сохранения файла импорта",
			interfaces.LogField{Key: "error", Value: err.Error()})
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{
			Error:   "internal_error",
			Code:    http.StatusInternalServerError,
			Message: "Ошибка сохранения файла",
		})
		return
	}

	taskID, err := h.queue.Enqueue(r.Context(), filePath)
	if err != nil {
		// файл не попадет в обработку, убираем его сразу
		_ = os.Remove(filePath)

		h.logger.ErrorWithContext(r.Context(), "Ошибка постановки импорта в очередь",
			interfaces.LogField{Key: "error", Value: err.Error()})
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{
			Error:   "internal_error",
			Code:    http.StatusInternalServerError,
			Message: "Ошибка постановки импорта в очередь",
		})
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, response{
		Success: true,
		Data: map[string]interface{}{
			"task_id": taskID,
		},
	})
}

// GetImportStatus возвращает снимок состояния задания импорта.
// Ответ всегда корректен: неизвестный task_id читается как PENDING
func (h *ImportHandler) GetImportStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")
	if taskID == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{
			Error:   "bad_request",
			Code:    http.StatusBadRequest,
			Message: "ID задания не указан",
		})
		return
	}

	status := h.tracker.Get(r.Context(), taskID)

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data:    status,
	})
}

func (h *ImportHandler) saveUpload(src io.Reader) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", err
	}

	filePath := filepath.Join(h.uploadDir, uuid.New().String()+".csv")
	dst, err := os.Create(filePath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(filePath)
		return "", err
	}
	return filePath, nil
}
