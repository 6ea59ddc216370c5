package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"lab-agent/common"
)

// Command представляет разобранную команду (используем общий тип)
type Command = common.Command

// CommandResult представляет ответ на команду (используем общий тип)
type CommandResult = common.CommandResult

// maxCommandParts ограничивает разбиение: имя, первый аргумент, остаток строки
const maxCommandParts = 3

// Имена полей телеметрии на проводе
const (
	FieldSensorID = "Sensor_ID"
	FieldDate     = "Date"
)

// valueFields содержит имя поля значения для каждого типа телеметрии
var valueFields = map[common.Kind]string{
	common.KindTemperature: "Temperature",
	common.KindHumidity:    "Humidity",
	common.KindPressure:    "Pressure",
}

// DecodeError ошибка разбора входящего сообщения
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode payload: %s: %v", e.Reason, e.Err)
	}
	return "decode payload: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ValidationError сообщение корректно, но в нем нет обязательных полей
type ValidationError struct {
	Kind    common.Kind
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s payload is missing %s", e.Kind, strings.Join(e.Missing, ", "))
}

// DecodeCommand разбирает текстовую команду.
// Пустое (после обрезки пробелов) сообщение является ошибкой, любой другой текст - валидная команда.
func DecodeCommand(data []byte) (Command, error) {
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return Command{}, &DecodeError{Reason: "empty command"}
	}

	parts := splitN(raw, maxCommandParts)
	return Command{
		Name:      parts[0],
		Arguments: parts[1:],
		Raw:       raw,
	}, nil
}

// splitN делит строку по пробельным символам не более чем на n частей.
// Последняя часть сохраняет внутренние пробелы.
func splitN(s string, n int) []string {
	var parts []string
	for len(parts) < n-1 {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		if s == "" {
			return parts
		}
		idx := strings.IndexFunc(s, unicode.IsSpace)
		if idx < 0 {
			return append(parts, s)
		}
		parts = append(parts, s[:idx])
		s = s[idx:]
	}
	if rest := strings.TrimSpace(s); rest != "" {
		parts = append(parts, rest)
	}
	return parts
}

// EncodeResult сериализует результат команды в JSON с тремя ключами
func EncodeResult(result CommandResult) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Кодирование структуры из строковых полей не может завершиться ошибкой
	_ = enc.Encode(result)
	return bytes.TrimRight(buf.Bytes(), "\n")
}

// Text значение поля телеметрии в текстовом виде.
// Принимает JSON строку, число или bool; числа сохраняются без переформатирования.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty value")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case '{', '[':
		return fmt.Errorf("unsupported value %s", data)
	default:
		// число или true/false
		*t = Text(data)
	}
	return nil
}

// SensorPayload поля входящего сообщения телеметрии по точным именам ключей.
// Значения разбираются только при построении записи, лишние поля не проверяются.
type SensorPayload map[string]json.RawMessage

// DecodeSensorPayload разбирает JSON объект телеметрии. Проверка наличия полей - в Record.
func DecodeSensorPayload(data []byte) (SensorPayload, error) {
	var p SensorPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, &DecodeError{Reason: "invalid sensor json", Err: err}
	}
	if p == nil {
		return nil, &DecodeError{Reason: "sensor payload is not an object"}
	}
	return p, nil
}

// field возвращает значение ключа; ok == false если ключа нет или он null
func (p SensorPayload) field(name string) (Text, bool, error) {
	raw, exists := p[name]
	if !exists || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", false, nil
	}
	var t Text
	if err := t.UnmarshalJSON(raw); err != nil {
		return "", false, &DecodeError{Reason: "field " + name, Err: err}
	}
	return t, true, nil
}

// Record строит SensorRecord для указанного типа; все поля обязательны
func (p SensorPayload) Record(kind common.Kind) (common.SensorRecord, error) {
	valueField, ok := valueFields[kind]
	if !ok {
		return common.SensorRecord{}, fmt.Errorf("unsupported telemetry kind %q", kind)
	}

	names := []string{FieldSensorID, FieldDate, valueField}
	values := make([]Text, len(names))
	var missing []string
	for i, name := range names {
		v, present, err := p.field(name)
		if err != nil {
			return common.SensorRecord{}, err
		}
		if !present {
			missing = append(missing, name)
			continue
		}
		values[i] = v
	}
	if len(missing) > 0 {
		return common.SensorRecord{}, &ValidationError{Kind: kind, Missing: missing}
	}

	return common.SensorRecord{
		SensorID:  string(values[0]),
		Timestamp: string(values[1]),
		Kind:      kind,
		Value:     string(values[2]),
	}, nil
}

// ValueField возвращает имя поля значения для типа телеметрии
func ValueField(kind common.Kind) string {
	if name, exists := valueFields[kind]; exists {
		return name
	}
	return "unknown_" + string(kind)
}
