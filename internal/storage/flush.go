package storage

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"comment-scout/internal/logging"
	"comment-scout/pkg/models"
	"comment-scout/pkg/utils"
)

// ErrPartialWrite means a flush failed after appending CSV rows and the
// append could not be rolled back, so the two files disagree
var ErrPartialWrite = errors.New("partial_write")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Flush appends records to the CSV file at csvPath and merges them into the
// JSON array at jsonPath. An empty batch touches neither file.
func Flush(records []models.CommentRecord, csvPath, jsonPath string) error {
	return flush(records, csvPath, jsonPath, logging.GetGlobalLogger())
}

func flush(records []models.CommentRecord, csvPath, jsonPath string, logger logging.Logger) error {
	if len(records) == 0 {
		return nil
	}

	for _, p := range []string{csvPath, jsonPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return utils.NewPersistenceError(p, err)
		}
	}

	merged, err := mergeJSON(jsonPath, records, logger)
	if err != nil {
		return utils.NewPersistenceError(jsonPath, err)
	}

	staged, err := stageFile(jsonPath, merged)
	if err != nil {
		return utils.NewPersistenceError(jsonPath, err)
	}

	prevSize, err := appendCSV(csvPath, records)
	if err != nil {
		os.Remove(staged)
		if errors.Is(err, ErrPartialWrite) {
			return err
		}
		return utils.NewPersistenceError(csvPath, err)
	}

	if err := os.Rename(staged, jsonPath); err != nil {
		os.Remove(staged)
		if rbErr := truncateTo(csvPath, prevSize); rbErr != nil {
			return fmt.Errorf("%w: %v (rollback: %v)", ErrPartialWrite, err, rbErr)
		}
		return utils.NewPersistenceError(jsonPath, err)
	}

	return nil
}

// mergeJSON returns the existing array at path extended with records. A file
// that cannot be parsed is treated as empty.
func mergeJSON(path string, records []models.CommentRecord, logger logging.Logger) ([]byte, error) {
	var existing []json.RawMessage

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	case len(bytes.TrimSpace(data)) > 0:
		if err := json.Unmarshal(data, &existing); err != nil {
			logger.Warn("Existing JSON output is unreadable, starting a new array", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
			existing = nil
		}
	}

	out := make([]interface{}, 0, len(existing)+len(records))
	for _, raw := range existing {
		out = append(out, raw)
	}
	for _, r := range records {
		out = append(out, r)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// stageFile writes data next to path and returns the temporary file name
func stageFile(path string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// appendCSV appends records as rows, writing the BOM and header first when
// the file is new or empty. It returns the file size before the append; a
// failed append is truncated back to that size.
func appendCSV(path string, records []models.CommentRecord) (int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return 0, err
	}
	prevSize := info.Size()

	err = writeRows(f, records, prevSize == 0)
	if err == nil {
		err = f.Sync()
	}
	if err != nil {
		if tErr := f.Truncate(prevSize); tErr != nil {
			f.Close()
			return prevSize, fmt.Errorf("%w: %v (rollback: %v)", ErrPartialWrite, err, tErr)
		}
		f.Close()
		return prevSize, err
	}
	return prevSize, f.Close()
}

func writeRows(w io.Writer, records []models.CommentRecord, withHeader bool) error {
	if withHeader {
		if _, err := w.Write(utf8BOM); err != nil {
			return err
		}
	}

	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if withHeader {
		if err := cw.Write(records[0].Fields()); err != nil {
			return err
		}
	}
	for _, r := range records {
		if err := cw.Write(r.Values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func truncateTo(path string, size int64) error {
	err := os.Truncate(path, size)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
