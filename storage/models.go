package storage

import (
	"fmt"

	"lab-agent/common"
)

// Все значения хранятся как текст для совместимости со старой схемой IoT.db

type TemperatureData struct {
	ID          uint   `gorm:"column:id;primaryKey;autoIncrement"`
	SensorID    string `gorm:"column:SensorID;type:text"`
	DateTime    string `gorm:"column:Date_n_Time;type:text"`
	Temperature string `gorm:"column:Temperature;type:text"`
}

func (TemperatureData) TableName() string { return "Temperature_Data" }

type HumidityData struct {
	ID       uint   `gorm:"column:id;primaryKey;autoIncrement"`
	SensorID string `gorm:"column:SensorID;type:text"`
	DateTime string `gorm:"column:Date_n_Time;type:text"`
	Humidity string `gorm:"column:Humidity;type:text"`
}

func (HumidityData) TableName() string { return "Humidity_Data" }

type PressureData struct {
	ID       uint   `gorm:"column:id;primaryKey;autoIncrement"`
	SensorID string `gorm:"column:SensorID;type:text"`
	DateTime string `gorm:"column:Date_n_Time;type:text"`
	Pressure string `gorm:"column:Pressure;type:text"`
}

func (PressureData) TableName() string { return "Pressure_Data" }

// models порядок совпадает с common.Kinds()
func models() []any {
	return []any{&TemperatureData{}, &HumidityData{}, &PressureData{}}
}

// rowFor строит строку таблицы, соответствующей типу записи
func rowFor(rec common.SensorRecord) (any, error) {
	switch rec.Kind {
	case common.KindTemperature:
		return &TemperatureData{SensorID: rec.SensorID, DateTime: rec.Timestamp, Temperature: rec.Value}, nil
	case common.KindHumidity:
		return &HumidityData{SensorID: rec.SensorID, DateTime: rec.Timestamp, Humidity: rec.Value}, nil
	case common.KindPressure:
		return &PressureData{SensorID: rec.SensorID, DateTime: rec.Timestamp, Pressure: rec.Value}, nil
	}
	return nil, fmt.Errorf("unsupported telemetry kind %q", rec.Kind)
}

func rowID(row any) uint {
	switch r := row.(type) {
	case *TemperatureData:
		return r.ID
	case *HumidityData:
		return r.ID
	case *PressureData:
		return r.ID
	}
	return 0
}
