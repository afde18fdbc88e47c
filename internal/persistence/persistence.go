package persistence

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/felixbrock/crayon/internal/domain"
)

// CSVStore appends interaction records to prompt.csv and objectives.csv
// under Dir. List fields are stored as JSON arrays inside their cell.
type CSVStore struct {
	Dir string
	mu  *sync.Mutex
}

func NewCSVStore(dir string) CSVStore {
	return CSVStore{Dir: dir, mu: &sync.Mutex{}}
}

func (s CSVStore) InsertPrompt(_ context.Context, record domain.PromptLog) error {
	return s.write("prompt.csv", []string{
		record.Id,
		record.SessionId,
		record.UserAgent,
		record.IpAddress,
		strconv.FormatInt(record.Timestamp, 10),
		record.Prompt,
		record.Response,
	})
}

func (s CSVStore) InsertObjectives(_ context.Context, record domain.ObjectivesLog) error {
	userObjectives, err := joinList(record.UserObjectives)
	if err != nil {
		return err
	}
	selectedObjectives, err := joinList(record.SelectedObjectives)
	if err != nil {
		return err
	}

	return s.write("objectives.csv", []string{
		record.Id,
		record.SessionId,
		record.UserAgent,
		record.IpAddress,
		strconv.FormatInt(record.Timestamp, 10),
		userObjectives,
		selectedObjectives,
		record.GuardrailResponse,
		record.GeneratedPromptResponse,
	})
}

func (s CSVStore) write(name string, record []string) (err error) {
	if s.mu != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
	}

	if err = os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}

	file, err := os.OpenFile(filepath.Join(s.Dir, name), os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := file.Close(); cerr != nil {
			slog.Error(fmt.Sprintf("Error occured: %s", cerr.Error()))
			if err == nil {
				err = cerr
			}
		}
	}()

	writer := csv.NewWriter(file)

	if err = writer.Write(record); err != nil {
		return err
	}

	writer.Flush()
	return writer.Error()
}

// ReadPrompts returns every prompt record written to Dir, oldest first.
func (s CSVStore) ReadPrompts() ([]domain.PromptLog, error) {
	rows, err := s.read("prompt.csv")
	if err != nil {
		return nil, err
	}

	records := make([]domain.PromptLog, 0, len(rows))
	for _, row := range rows {
		if len(row) != 7 {
			return nil, fmt.Errorf("prompt.csv: unexpected field count %d", len(row))
		}
		ts, err := strconv.ParseInt(row[4], 10, 64)
		if err != nil {
			return nil, err
		}
		records = append(records, domain.PromptLog{
			Id:        row[0],
			SessionId: row[1],
			UserAgent: row[2],
			IpAddress: row[3],
			Timestamp: ts,
			Prompt:    row[5],
			Response:  row[6],
		})
	}

	return records, nil
}

// ReadObjectives returns every objectives record written to Dir, oldest first.
func (s CSVStore) ReadObjectives() ([]domain.ObjectivesLog, error) {
	rows, err := s.read("objectives.csv")
	if err != nil {
		return nil, err
	}

	records := make([]domain.ObjectivesLog, 0, len(rows))
	for _, row := range rows {
		if len(row) != 9 {
			return nil, fmt.Errorf("objectives.csv: unexpected field count %d", len(row))
		}
		ts, err := strconv.ParseInt(row[4], 10, 64)
		if err != nil {
			return nil, err
		}
		userObjectives, err := splitList(row[5])
		if err != nil {
			return nil, fmt.Errorf("objectives.csv: user_objectives: %w", err)
		}
		selectedObjectives, err := splitList(row[6])
		if err != nil {
			return nil, fmt.Errorf("objectives.csv: selected_objectives: %w", err)
		}
		records = append(records, domain.ObjectivesLog{
			Id:                      row[0],
			SessionId:               row[1],
			UserAgent:               row[2],
			IpAddress:               row[3],
			Timestamp:               ts,
			UserObjectives:          userObjectives,
			SelectedObjectives:      selectedObjectives,
			GuardrailResponse:       row[7],
			GeneratedPromptResponse: row[8],
		})
	}

	return records, nil
}

func (s CSVStore) read(name string) ([][]string, error) {
	if s.mu != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
	}

	file, err := os.Open(filepath.Join(s.Dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	defer func() {
		if err := file.Close(); err != nil {
			slog.Error(fmt.Sprintf("Error occured: %s", err.Error()))
		}
	}()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

func joinList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	content, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func splitList(field string) ([]string, error) {
	list := []string{}
	if field == "" {
		return list, nil
	}
	if err := json.Unmarshal([]byte(field), &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}
