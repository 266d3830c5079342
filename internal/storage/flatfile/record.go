package flatfile

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mmynk/moneybot/internal/models"
)

// delimiter separates fields within a record. Records are separated by '\n'.
const delimiter = "|"

// encodeRecord renders one entry as a single line without the trailing newline:
//
//	payer|description|total|share_1|...|share_n|recorded_at
func encodeRecord(e *models.Entry, groups *models.GroupTable) (string, error) {
	if strings.ContainsAny(e.Description, delimiter+"\r\n") {
		return "", fmt.Errorf("description %q contains a delimiter or newline", e.Description)
	}
	if strings.ContainsAny(e.Payer, delimiter+"\r\n") {
		return "", fmt.Errorf("payer %q contains a delimiter or newline", e.Payer)
	}

	fields := make([]string, 0, groups.Len()+4)
	fields = append(fields, e.Payer, e.Description, formatAmount(e.Total))
	for _, share := range e.OrderedShares(groups) {
		fields = append(fields, formatAmount(share))
	}
	fields = append(fields, formatTimestamp(e.RecordedAt))
	return strings.Join(fields, delimiter), nil
}

// decodeRecord parses a line produced by encodeRecord.
func decodeRecord(line string, groups *models.GroupTable) (models.Entry, error) {
	fields := strings.Split(line, delimiter)
	if want := groups.Len() + 4; len(fields) != want {
		return models.Entry{}, fmt.Errorf("expected %d fields, got %d", want, len(fields))
	}

	payer := fields[0]
	if !groups.Has(payer) {
		return models.Entry{}, fmt.Errorf("unknown payer group %q", payer)
	}

	total, err := parseAmount(fields[2])
	if err != nil {
		return models.Entry{}, fmt.Errorf("total: %w", err)
	}
	if total < 0 {
		return models.Entry{}, fmt.Errorf("negative total %v", total)
	}

	names := groups.Names()
	shares := make(map[string]float64, len(names))
	for i, name := range names {
		share, err := parseAmount(fields[3+i])
		if err != nil {
			return models.Entry{}, fmt.Errorf("share for %s: %w", name, err)
		}
		shares[name] = share
	}

	recordedAt, err := parseTimestamp(fields[len(fields)-1])
	if err != nil {
		return models.Entry{}, fmt.Errorf("recorded_at: %w", err)
	}

	return models.Entry{
		Payer:       payer,
		Description: fields[1],
		Total:       total,
		Shares:      shares,
		RecordedAt:  recordedAt,
	}, nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseAmount(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %s", s)
	}
	return v, nil
}

// formatTimestamp writes epoch seconds with a microsecond fraction.
func formatTimestamp(t time.Time) string {
	us := t.UnixMicro()
	sec, frac := us/1e6, us%1e6
	if frac < 0 {
		sec--
		frac += 1e6
	}
	return fmt.Sprintf("%d.%06d", sec, frac)
}

// parseTimestamp accepts integer or fractional epoch seconds.
func parseTimestamp(s string) (time.Time, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return time.Time{}, fmt.Errorf("invalid epoch timestamp: %s", s)
	}
	return time.UnixMicro(int64(math.Round(v * 1e6))), nil
}
