package common

// Status результат выполнения команды
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Kind тип телеметрии, определяется последним сегментом топика
type Kind string

const (
	KindTemperature Kind = "temperature"
	KindHumidity    Kind = "humidity"
	KindPressure    Kind = "pressure"
)

// Kinds возвращает все поддерживаемые типы телеметрии в фиксированном порядке
func Kinds() []Kind {
	return []Kind{KindTemperature, KindHumidity, KindPressure}
}

// Command представляет разобранную текстовую команду
type Command struct {
	Name      string   // Имя команды как его ввел пользователь
	Arguments []string // Аргументы; последний может содержать пробелы
	Raw       string   // Исходная строка без крайних пробелов
}

// CommandResult представляет ответ на команду
type CommandResult struct {
	Status Status `json:"status"`       // "success", "error"
	Echo   string `json:"command_echo"` // Полученное имя команды
	Data   string `json:"data"`         // Вывод команды или текст ошибки
}

// SensorRecord представляет валидированную запись телеметрии
type SensorRecord struct {
	SensorID  string `json:"sensor_id"`
	Timestamp string `json:"timestamp"`
	Kind      Kind   `json:"kind"`
	Value     string `json:"value"` // Значение хранится как текст
}

// StoredRecord запись, прочитанная из хранилища
type StoredRecord struct {
	ID uint `json:"id"`
	SensorRecord
}
