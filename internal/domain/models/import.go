package models

// Состояния выполнения импорта. Снимок состояния перезаписывается целиком,
// хранится только последнее значение.
const (
	ImportStatePending  = "PENDING"
	ImportStateProgress = "PROGRESS"
	ImportStateSuccess  = "SUCCESS"
	ImportStateFailure  = "FAILURE"
)

// Виды ошибок импорта для операторской диагностики
const (
	ImportErrorSchema   = "schema_error"
	ImportErrorConflict = "unique_violation"
	ImportErrorInternal = "import_error"
)

// ImportError описывает причину завершения импорта с ошибкой
type ImportError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ImportStatus - снимок состояния одного запуска импорта.
// Пишется только самим запуском, читается любым числом поллеров.
type ImportStatus struct {
	State   string       `json:"state"`
	Current int          `json:"current"`
	Total   int          `json:"total"`
	Status  string       `json:"status"`
	Result  string       `json:"result,omitempty"`
	Error   *ImportError `json:"error,omitempty"`
}

// PendingImportStatus возвращает снимок для неизвестного или еще не
// начавшегося задания. Неизвестный и вытесненный task id неразличимы.
func PendingImportStatus() *ImportStatus {
	return &ImportStatus{
		State:  ImportStatePending,
		Status: "Задание ожидает выполнения...",
	}
}

// ImportCommand - команда воркеру на запуск импорта одного файла
type ImportCommand struct {
	TaskID   string `json:"task_id"`
	FilePath string `json:"file_path"`
}
