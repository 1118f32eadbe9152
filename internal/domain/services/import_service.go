package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/athebyme/catalog-service/internal/adapters/storage"
	"github.com/athebyme/catalog-service/internal/domain/models"
	"github.com/athebyme/catalog-service/internal/utils"
	"github.com/athebyme/catalog-service/pkg/interfaces"
)

// requiredColumns - обязательные колонки CSV файла импорта
var requiredColumns = []string{"sku", "name", "description", "active"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// maxCSVLineSize ограничивает длину одной строки CSV при подсчете
const maxCSVLineSize = 1024 * 1024

// schemaError - нарушение схемы входного файла, обнаруженное до обработки строк
type schemaError struct {
	missing []string
}

func (e *schemaError) Error() string {
	return "в CSV отсутствуют обязательные колонки: " + strings.Join(e.missing, ", ")
}

// ImportQueue ставит задания импорта в очередь на стороне API
type ImportQueue struct {
	messaging interfaces.MessagingPort
	topic     string
	logger    interfaces.LoggerPort
}

// NewImportQueue создает постановщик заданий импорта
func NewImportQueue(messaging interfaces.MessagingPort, topic string, logger interfaces.LoggerPort) *ImportQueue {
	return &ImportQueue{
		messaging: messaging,
		topic:     topic,
		logger:    logger,
	}
}

// Enqueue публикует команду импорта и возвращает идентификатор задания
func (q *ImportQueue) Enqueue(ctx context.Context, filePath string) (string, error) {
	taskID := uuid.New().String()

	command, err := json.Marshal(models.ImportCommand{
		TaskID:   taskID,
		FilePath: filePath,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal import command: %w", err)
	}

	if err := q.messaging.PublishWithKey(ctx, q.topic, taskID, command); err != nil {
		return "", fmt.Errorf("failed to publish import command: %w", err)
	}

	q.logger.InfoWithContext(ctx, "Задание импорта поставлено в очередь",
		interfaces.LogField{Key: "task_id", Value: taskID},
		interfaces.LogField{Key: "file_path", Value: filePath},
	)

	return taskID, nil
}

// ImportService выполняет пакетный импорт товаров из CSV файла.
// Запуск обрабатывает ровно один файл, состояние публикуется через
// ProgressTracker.
type ImportService struct {
	storage       postgres.Port
	tracker       *ProgressTracker
	logger        interfaces.LoggerPort
	batchSize     int
	progressEvery int
}

// NewImportService создает сервис импорта.
// batchSize - размер пакета вставки/обновления, progressEvery - период
// публикации прогресса в строках
func NewImportService(st postgres.Port, tracker *ProgressTracker, logger interfaces.LoggerPort, batchSize, progressEvery int) *ImportService {
	if batchSize <= 0 {
		batchSize = 1000
	}
	if progressEvery <= 0 {
		progressEvery = 100
	}
	return &ImportService{
		storage:       st,
		tracker:       tracker,
		logger:        logger,
		batchSize:     batchSize,
		progressEvery: progressEvery,
	}
}

// Run выполняет импорт одного файла от начала до терминального состояния.
// Файл удаляется по завершении независимо от исхода, ошибка удаления
// не влияет на результат импорта
func (s *ImportService) Run(ctx context.Context, taskID, filePath string) {
	defer func() {
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			s.logger.WarnWithContext(ctx, "Не удалось удалить файл импорта",
				interfaces.LogField{Key: "task_id", Value: taskID},
				interfaces.LogField{Key: "file_path", Value: filePath},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
		}
	}()

	s.tracker.Set(ctx, taskID, &models.ImportStatus{
		State:  models.ImportStateProgress,
		Status: "Открытие CSV файла...",
	})

	processed, total, err := s.runImport(ctx, taskID, filePath)
	if err != nil {
		s.logger.ErrorWithContext(ctx, "Импорт завершился с ошибкой",
			interfaces.LogField{Key: "task_id", Value: taskID},
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
		s.tracker.Set(ctx, taskID, &models.ImportStatus{
			State:  models.ImportStateFailure,
			Status: "Импорт завершился с ошибкой",
			Error: &models.ImportError{
				Kind:    importErrorKind(err),
				Message: err.Error(),
			},
		})
		return
	}

	s.logger.InfoWithContext(ctx, "Импорт успешно завершен",
		interfaces.LogField{Key: "task_id", Value: taskID},
		interfaces.LogField{Key: "processed", Value: processed},
		interfaces.LogField{Key: "total", Value: total},
	)
	s.tracker.Set(ctx, taskID, &models.ImportStatus{
		State:   models.ImportStateSuccess,
		Current: total,
		Total:   total,
		Status:  "Импорт успешно завершен",
		Result:  fmt.Sprintf("Обработано товаров: %d", processed),
	})
}

func (s *ImportService) runImport(ctx context.Context, taskID, filePath string) (processed, total int, err error) {
	total, err = countDataRows(filePath)
	if err != nil {
		return 0, 0, err
	}

	s.tracker.Set(ctx, taskID, &models.ImportStatus{
		State:  models.ImportStateProgress,
		Total:  total,
		Status: fmt.Sprintf("Найдено товаров для обработки: %d", total),
	})

	existing, err := s.storage.ListAllProducts(ctx)
	if err != nil {
		return 0, total, fmt.Errorf("failed to load catalog index: %w", err)
	}
	resolver := newIdentityResolver(existing)

	file, err := os.Open(filePath)
	if err != nil {
		return 0, total, fmt.Errorf("failed to open import file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(newBOMReader(file))
	// строки с недостающими хвостовыми полями допустимы, как и лишние поля
	reader.FieldsPerRecord = -1

	columns, err := readHeader(reader)
	if err != nil {
		return 0, total, err
	}

	var (
		creates []*models.Product
		updates []*models.Product
		current int
	)

	flush := func(status string) error {
		if status != "" {
			s.tracker.Set(ctx, taskID, &models.ImportStatus{
				State:   models.ImportStateProgress,
				Current: current,
				Total:   total,
				Status:  status,
			})
		}
		if err := s.flushBatch(ctx, creates, updates); err != nil {
			return err
		}
		creates = creates[:0]
		updates = updates[:0]
		return nil
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return processed, total, fmt.Errorf("failed to read csv row: %w", err)
		}

		current++
		if current%s.progressEvery == 0 {
			s.tracker.Set(ctx, taskID, &models.ImportStatus{
				State:   models.ImportStateProgress,
				Current: current,
				Total:   total,
				Status:  fmt.Sprintf("Обработка строки %d из %d...", current, total),
			})
		}

		sku := strings.TrimSpace(field(record, columns["sku"]))
		name := strings.TrimSpace(field(record, columns["name"]))
		if sku == "" || name == "" {
			continue
		}

		description := strings.TrimSpace(field(record, columns["description"]))
		active := models.ParseActive(field(record, columns["active"]))

		if product, ok := resolver.Resolve(sku); ok {
			product.Name = name
			product.Description = description
			product.Active = active
			if product.ID != "" {
				updates = append(updates, product)
			}
			// запись, созданная этим же файлом и еще не сохраненная,
			// обновлена на месте: последняя строка выигрывает
		} else {
			product := &models.Product{
				SKU:         models.CanonicalSKU(sku),
				Name:        name,
				Description: description,
				Active:      active,
			}
			resolver.Stage(product)
			creates = append(creates, product)
		}
		processed++

		if len(creates)+len(updates) >= s.batchSize {
			if err := flush(""); err != nil {
				return processed, total, err
			}
		}
	}

	if err := flush("Сохранение последнего пакета в БД..."); err != nil {
		return processed, total, err
	}

	return processed, total, nil
}

// flushBatch сохраняет накопленный пакет одной транзакцией
func (s *ImportService) flushBatch(ctx context.Context, creates, updates []*models.Product) error {
	if len(creates) == 0 && len(updates) == 0 {
		return nil
	}

	txCtx, err := s.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin import batch: %w", err)
	}

	if err := s.storage.BulkInsertProducts(txCtx, creates); err != nil {
		_ = s.storage.RollbackTx(txCtx)
		return err
	}
	if err := s.storage.BulkUpdateProducts(txCtx, updates); err != nil {
		_ = s.storage.RollbackTx(txCtx)
		return err
	}

	if err := s.storage.CommitTx(txCtx); err != nil {
		_ = s.storage.RollbackTx(txCtx)
		return fmt.Errorf("failed to commit import batch: %w", err)
	}
	return nil
}

// importErrorKind классифицирует причину неуспеха для операторской диагностики
func importErrorKind(err error) string {
	var schemaErr *schemaError
	switch {
	case errors.As(err, &schemaErr):
		return models.ImportErrorSchema
	case errors.Is(err, utils.ErrSKUConflict):
		return models.ImportErrorConflict
	default:
		return models.ImportErrorInternal
	}
}

// readHeader читает заголовок CSV и возвращает отображение
// имя колонки -> индекс. Имена сравниваются без учета регистра
func readHeader(reader *csv.Reader) (map[string]int, error) {
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &schemaError{missing: requiredColumns}
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &schemaError{missing: missing}
	}

	return columns, nil
}

// field возвращает значение колонки либо пустую строку для короткой записи
func field(record []string, index int) string {
	if index < 0 || index >= len(record) {
		return ""
	}
	return record[index]
}

// countDataRows считает строки данных в файле без разбора CSV.
// Заголовок не учитывается
func countDataRows(filePath string) (int, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open import file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxCSVLineSize)

	lines := 0
	for scanner.Scan() {
		lines++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to count csv rows: %w", err)
	}

	if lines <= 1 {
		return 0, nil
	}
	return lines - 1, nil
}

// newBOMReader пропускает UTF-8 BOM в начале файла, если он есть
func newBOMReader(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}
