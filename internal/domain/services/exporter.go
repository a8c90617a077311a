package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"careguard/internal/domain/models"
	"careguard/internal/infrastructure/storage"
	"careguard/pkg/logger"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Activity reports rank at most this many keywords.
const conversationTopKeywords = 20

// exportEnvelope is the JSON export document shape.
type exportEnvelope struct {
	Info exportInfo        `json:"export_info"`
	Logs []json.RawMessage `json:"logs"`
}

type exportInfo struct {
	LogType    string       `json:"log_type"`
	Period     exportPeriod `json:"period"`
	ExportedAt time.Time    `json:"exported_at"`
	TotalLogs  int          `json:"total_logs"`
}

type exportPeriod struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Exporter renders persisted day logs as downloadable CSV or JSON
// documents and builds conversation activity reports.
type Exporter struct {
	store  storage.LogStore
	dir    string
	logger *logger.Logger
}

// NewExporter creates a new Exporter. dir is where ExportToFile writes.
func NewExporter(store storage.LogStore, dir string, log *logger.Logger) *Exporter {
	return &Exporter{
		store:  store,
		dir:    dir,
		logger: log.WithComponent("exporter"),
	}
}

// FileName returns the canonical export file name for a category and range.
func FileName(category storage.Category, startDate, endDate, format string) string {
	return fmt.Sprintf("%s_%s_to_%s.%s", category, startDate, endDate, format)
}

// Export renders all records of a category between two ISO dates
// (inclusive) in the requested format.
func (e *Exporter) Export(ctx context.Context, category storage.Category, startDate, endDate, format string) ([]byte, error) {
	start, end, err := parseDateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	raw, err := e.store.ReadRange(ctx, category, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s logs: %w", category, err)
	}

	switch format {
	case FormatJSON:
		return e.renderJSON(category, startDate, endDate, raw)
	case FormatCSV:
		return e.renderCSV(category, raw)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// ExportToFile writes an export document into the export directory and
// returns the full path.
func (e *Exporter) ExportToFile(ctx context.Context, category storage.Category, startDate, endDate, format string) (string, error) {
	data, err := e.Export(ctx, category, startDate, endDate, format)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(e.dir, FileName(category, startDate, endDate, format))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	e.logger.Info().Str("path", path).Str("category", string(category)).Msg("export written")
	return path, nil
}

func (e *Exporter) renderJSON(category storage.Category, startDate, endDate string, raw []json.RawMessage) ([]byte, error) {
	envelope := exportEnvelope{
		Info: exportInfo{
			LogType: string(category),
			Period: exportPeriod{
				StartDate: startDate,
				EndDate:   endDate,
			},
			ExportedAt: time.Now(),
			TotalLogs:  len(raw),
		},
		Logs: raw,
	}
	if envelope.Logs == nil {
		envelope.Logs = []json.RawMessage{}
	}

	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export: %w", err)
	}
	return data, nil
}

func (e *Exporter) renderCSV(category storage.Category, raw []json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	switch category {
	case storage.CategoryEmotions:
		if err := w.Write([]string{"timestamp", "text", "dominant_emotion", "emotion_category", "confidence", "keywords"}); err != nil {
			return nil, err
		}
		for _, data := range raw {
			var r models.EmotionRecord
			if err := json.Unmarshal(data, &r); err != nil {
				e.logger.Warn().Err(err).Msg("skipping malformed emotion record in export")
				continue
			}
			if err := w.Write([]string{
				r.Timestamp.Format(time.RFC3339),
				r.SourceText,
				r.DominantEmotion,
				string(r.Category),
				formatFloat(r.Confidence),
				strings.Join(r.Keywords, ";"),
			}); err != nil {
				return nil, err
			}
		}

	case storage.CategoryPhishing:
		if err := w.Write([]string{"timestamp", "text", "is_phishing", "risk_level", "score", "keywords", "method", "explanation"}); err != nil {
			return nil, err
		}
		for _, data := range raw {
			var v models.PhishingVerdict
			if err := json.Unmarshal(data, &v); err != nil {
				e.logger.Warn().Err(err).Msg("skipping malformed phishing verdict in export")
				continue
			}
			if err := w.Write([]string{
				v.Timestamp.Format(time.RFC3339),
				v.SourceText,
				strconv.FormatBool(v.IsPhishing),
				string(v.RiskLevel),
				formatFloat(v.Score),
				strings.Join(v.Keywords, ";"),
				string(v.Method),
				v.Explanation,
			}); err != nil {
				return nil, err
			}
		}

	case storage.CategoryAlerts:
		if err := w.Write([]string{"timestamp", "type", "severity", "message"}); err != nil {
			return nil, err
		}
		for _, data := range raw {
			var a models.Alert
			if err := json.Unmarshal(data, &a); err != nil {
				e.logger.Warn().Err(err).Msg("skipping malformed alert in export")
				continue
			}
			if err := w.Write([]string{
				a.Timestamp.Format(time.RFC3339),
				string(a.Type),
				string(a.Severity),
				a.Message,
			}); err != nil {
				return nil, err
			}
		}

	case storage.CategoryConversations:
		if err := w.Write([]string{"timestamp", "user_input", "ai_response", "keywords"}); err != nil {
			return nil, err
		}
		for _, data := range raw {
			var c models.ConversationLogEntry
			if err := json.Unmarshal(data, &c); err != nil {
				e.logger.Warn().Err(err).Msg("skipping malformed conversation entry in export")
				continue
			}
			if err := w.Write([]string{
				c.Timestamp.Format(time.RFC3339),
				c.UserInput,
				c.AIResponse,
				strings.Join(c.Keywords, ";"),
			}); err != nil {
				return nil, err
			}
		}

	default:
		// Reports are nested documents; flat CSV would lose most of them
		return nil, fmt.Errorf("csv export not supported for category %q", category)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to render csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ConversationReport summarizes conversation activity between two ISO
// dates (inclusive).
func (e *Exporter) ConversationReport(ctx context.Context, startDate, endDate string) (*models.ConversationReport, error) {
	start, end, err := parseDateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	raw, err := e.store.ReadRange(ctx, storage.CategoryConversations, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation logs: %w", err)
	}

	report := &models.ConversationReport{
		PeriodStart:         startDate,
		PeriodEnd:           endDate,
		GeneratedAt:         time.Now(),
		DailyCounts:         map[string]int{},
		TopKeywords:         []models.KeywordCount{},
		EmotionDistribution: map[string]int{},
	}

	counts := make(map[string]int)
	var order []string
	for _, data := range raw {
		var entry models.ConversationLogEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			e.logger.Warn().Err(err).Msg("skipping malformed conversation entry in report")
			continue
		}
		if entry.Timestamp.IsZero() {
			continue
		}

		report.TotalConversations++
		report.DailyCounts[entry.Timestamp.Format(storage.DayFormat)]++

		for _, kw := range entry.Keywords {
			if counts[kw] == 0 {
				order = append(order, kw)
			}
			counts[kw]++
		}

		if category, ok := entry.Metadata["emotion_category"].(string); ok && category != "" {
			report.EmotionDistribution[category]++
		}
	}

	ranked := make([]models.KeywordCount, 0, len(order))
	for _, kw := range order {
		ranked = append(ranked, models.KeywordCount{Keyword: kw, Count: counts[kw]})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Count > ranked[j].Count })
	if len(ranked) > conversationTopKeywords {
		ranked = ranked[:conversationTopKeywords]
	}
	report.TopKeywords = ranked

	return report, nil
}

func parseDateRange(startDate, endDate string) (time.Time, time.Time, error) {
	start, err := time.Parse(storage.DayFormat, startDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", startDate, err)
	}
	end, err := time.Parse(storage.DayFormat, endDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", endDate, err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %s precedes start date %s", endDate, startDate)
	}
	return start, end, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
