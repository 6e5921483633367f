package arrivals

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LoadSchedule reads arrival ticks from one or more CSV files. Each file
// needs a "tick" column; an optional "count" column repeats the arrival.
func LoadSchedule(csvPaths ...string) (*Schedule, error) {
	s := NewSchedule()

	for _, csvPath := range csvPaths {
		file, err := os.Open(csvPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open CSV file %s: %w", csvPath, err)
		}
		err = readTicks(file, s)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", csvPath, err)
		}
	}

	return s, nil
}

// readTicks adds every row of r to s
func readTicks(r io.Reader, s *Schedule) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}
	headerMap := make(map[string]int, len(header))
	for i, h := range header {
		headerMap[strings.ToLower(strings.Trim(strings.TrimSpace(h), "'\""))] = i
	}
	if _, ok := headerMap["tick"]; !ok {
		return fmt.Errorf("missing tick column")
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read CSV record: %w", err)
		}

		field := getField(record, headerMap, "tick")
		if field == "" {
			continue
		}
		tick, err := strconv.Atoi(field)
		if err != nil || tick < 0 {
			return fmt.Errorf("line %d: invalid tick %q", line, field)
		}

		count := 1
		if c := getField(record, headerMap, "count"); c != "" {
			count, err = strconv.Atoi(c)
			if err != nil || count < 0 {
				return fmt.Errorf("line %d: invalid count %q", line, c)
			}
		}
		s.Add(tick, count)
	}

	return nil
}

// getField safely retrieves a field from a CSV record by header name
func getField(record []string, headerMap map[string]int, fieldName string) string {
	if idx, ok := headerMap[fieldName]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}
