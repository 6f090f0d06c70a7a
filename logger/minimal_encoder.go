package logger

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// Color palette for the console encoder. A single calm palette (forest
// greens, one accent per semantic role) rather than a full theme system --
// this runtime's logs are read by operators in a terminal, not end users
// in a themed UI.
const (
	colorReset = "\x1b[0m"
	colorBold  = "\x1b[1m"
)

type palette struct {
	fg        string
	greenMid  string
	aqua      string
	orange    string
	yellow    string
	red       string
	redBg     string
	yellowBg  string
}

var forest = palette{
	fg:       "\x1b[38;5;223m",
	greenMid: "\x1b[38;5;107m",
	aqua:     "\x1b[38;5;109m",
	orange:   "\x1b[38;5;208m",
	yellow:   "\x1b[38;5;179m",
	red:      "\x1b[38;5;167m",
	redBg:    "\x1b[48;5;52m",
	yellowBg: "\x1b[48;5;58m",
}

// currentTheme exists only so operators can flip REKUEST_LOG_THEME without
// a rebuild; "forest" is the only palette shipped today.
var currentTheme = "forest"

// SetTheme configures the color scheme for log output.
func SetTheme(theme string) {
	if theme == "forest" {
		currentTheme = theme
	}
}

func colorComponent(name string) string {
	hash := 0
	for _, c := range name {
		hash += int(c)
	}
	if hash%2 == 0 {
		return forest.greenMid
	}
	return forest.orange
}

// minimalEncoder implements a calm, compact console encoder.
// Format: "13:04:35  agent  assignment bound  [a_8f2c1]  percentage=42"
type minimalEncoder struct {
	zapcore.Encoder
	buf *buffer.Buffer
}

func newMinimalEncoder() *minimalEncoder {
	baseEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return &minimalEncoder{
		Encoder: baseEncoder,
		buf:     buffer.NewPool().Get(),
	}
}

func (enc *minimalEncoder) Clone() zapcore.Encoder {
	return &minimalEncoder{
		Encoder: enc.Encoder.Clone(),
		buf:     buffer.NewPool().Get(),
	}
}

func (enc *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	final := buffer.NewPool().Get()

	final.AppendString(forest.greenMid)
	final.AppendString(ent.Time.Format("15:04:05"))
	final.AppendString(colorReset)

	if ent.Level != zapcore.InfoLevel {
		final.AppendString("  ")
		final.AppendString(levelColorString(ent.Level))
	}

	if ent.LoggerName != "" {
		final.AppendString("  ")
		final.AppendString(colorComponent(ent.LoggerName))
		final.AppendString(abbreviateName(ent.LoggerName))
		final.AppendString(colorReset)
	}

	final.AppendString("  ")
	final.AppendString(colorizeMessage(ent.Message))

	if len(fields) > 0 {
		if values := extractFieldValues(fields); values != "" {
			final.AppendString("  ")
			final.AppendString(values)
		}
	}

	final.AppendString("\n")
	return final, nil
}

func levelColorString(level zapcore.Level) string {
	switch level {
	case zapcore.WarnLevel:
		return colorBold + forest.yellowBg + forest.yellow + "WARN" + colorReset
	case zapcore.ErrorLevel:
		return colorBold + forest.redBg + forest.red + "ERROR" + colorReset
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return colorBold + forest.redBg + forest.red + level.CapitalString() + colorReset
	default:
		return ""
	}
}

// abbreviateName shortens dotted component names: statesync.worker -> s.worker;
// single-segment names are kept as they are (agent -> agent)
func abbreviateName(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) > 1 {
		return string(parts[0][0]) + "." + strings.Join(parts[1:], ".")
	}
	return name
}

var bracketPattern = regexp.MustCompile(`\[([^\]]+)\]`)

// colorizeMessage highlights bracketed contexts like [a_8f2c1] (assignment
// ids) or [bound] (state transitions) within the log message.
func colorizeMessage(msg string) string {
	result := strings.Builder{}
	lastIndex := 0

	matches := bracketPattern.FindAllStringSubmatchIndex(msg, -1)
	for _, match := range matches {
		textBefore := msg[lastIndex:match[0]]
		if textBefore != "" {
			result.WriteString(forest.fg)
			result.WriteString(textBefore)
			result.WriteString(colorReset)
		}

		content := msg[match[2]:match[3]]
		color := forest.orange
		if strings.HasPrefix(content, "a_") || strings.HasPrefix(content, "s_") {
			color = forest.aqua
		}

		result.WriteString(color)
		result.WriteString(msg[match[0]:match[1]])
		result.WriteString(colorReset)

		lastIndex = match[1]
	}

	remaining := msg[lastIndex:]
	if remaining != "" {
		result.WriteString(forest.fg)
		result.WriteString(remaining)
		result.WriteString(colorReset)
	}

	return result.String()
}

func getFieldValue(field zapcore.Field) string {
	switch field.Type {
	case zapcore.StringType:
		return field.String
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type,
		zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		return fmt.Sprintf("%d", field.Integer)
	default:
		if field.Interface != nil {
			return fmt.Sprintf("%v", field.Interface)
		}
		return ""
	}
}

// extractFieldValues pulls the values most useful at a glance -- assignment,
// state and implementation ids, revision, duration -- out of the structured
// field set.
func extractFieldValues(fields []zapcore.Field) string {
	var values []string
	for _, field := range fields {
		switch field.Key {
		case FieldAssignmentID, FieldStateName, FieldImplementationID:
			if v := getFieldValue(field); v != "" {
				values = append(values, forest.aqua+v+colorReset)
			}
		case FieldRevision:
			if v := getFieldValue(field); v != "" {
				values = append(values, forest.fg+"rev="+colorReset+forest.aqua+v+colorReset)
			}
		case FieldDurationMS:
			if v := getFieldValue(field); v != "" {
				values = append(values, forest.fg+v+"ms"+colorReset)
			}
		}
	}
	if len(values) == 0 {
		return ""
	}
	return strings.Join(values, " ")
}
