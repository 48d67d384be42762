package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config 应用程序配置
type Config struct {
	Server struct {
		Addr         string   `json:"addr"`          // 监听地址
		ReadTimeout  Duration `json:"read_timeout"`  // 读超时
		WriteTimeout Duration `json:"write_timeout"` // 写超时
	} `json:"server"`

	DataDir        string   `json:"data_dir"`        // 数据目录
	FlightsFile    string   `json:"flights_file"`    // 航班数据文件(csv/xlsx)
	DescriptorFile string   `json:"descriptor_file"` // 列描述文件
	SheetName      string   `json:"sheet_name"`      // xlsx 工作表
	CheckInterval  Duration `json:"check_interval"`  // 数据变更检查间隔
	LogName        string   `json:"log_name"`
	LogMaxSize     string   `json:"log_max_size"`
	PidFile        string   `json:"pid_file"`
	ReportDir      string   `json:"report_dir"`
	PagesFile      string   `json:"pages_file"`
}

// DataConfig describes the dataset: column roles, the event date and chart defaults.
type DataConfig struct {
	EventDate         string            `json:"event_date"`
	TimestampColumn   string            `json:"timestamp_column"`
	DropColumns       []string          `json:"drop_columns"`
	NonNumericColumns []string          `json:"non_numeric_columns"`
	Dimensions        map[string]string `json:"dimensions"`
	BeforeIndicator   string            `json:"before_indicator"`
	AfterIndicator    string            `json:"after_indicator"`
	AirportColumn     string            `json:"airport_column"`
	LatitudeColumn    string            `json:"latitude_column"`
	LongitudeColumn   string            `json:"longitude_column"`
	CityColumn        string            `json:"city_column"`
	HourColumn        string            `json:"hour_column"`
	Home              struct {
		Name string  `json:"name"`
		Lat  float64 `json:"lat"`
		Long float64 `json:"long"`
	} `json:"home"`
	DefaultTopN       int    `json:"default_top_n"`
	MaxTopN           int    `json:"max_top_n"`
	DescriptorCharset string `json:"descriptor_charset"`
	StrictDescriptors *bool  `json:"strict_descriptors"`
}

const eventDateLayout = "2006-01-02"

var (
	once               sync.Once
	instance           *Config
	dataConfigInstance *DataConfig
	loadErr            error
	mu                 sync.RWMutex
)

// LoadConfig 只加载一次配置, 后续调用返回同一实例
func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	once.Do(func() {
		instance, dataConfigInstance, loadErr = Load(jsonFolder, jsonFile, dataJsonFile)
	})
	return instance, dataConfigInstance, loadErr
}

// Load reads both configuration files, applies defaults, then .env and FLIGHTS_*
// environment overrides.
func Load(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	cfg, dcfg, err := loadConfigs(jsonFolder, jsonFile, dataJsonFile)
	if err != nil {
		return nil, nil, err
	}

	// .env 不存在时忽略
	_ = godotenv.Load(filepath.Join(jsonFolder, ".env"))
	cfg.applyEnv()
	cfg.applyDefaults()
	dcfg.applyDefaults()

	if err := dcfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, dcfg, nil
}

func loadConfigs(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	dataConfigFile := filepath.Join(jsonFolder, dataJsonFile)

	configData, err := readFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("read config: %w", err)
	}

	dataConfigData, err := readFile(dataConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("read data config: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	dcfgChan := make(chan *DataConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(configData, cfgChan, errChan)
	go parseDataConfig(dataConfigData, dcfgChan, errChan)

	return waitForResults(cfgChan, dcfgChan, errChan)
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", filePath, err)
	}
	return data, nil
}

func parseConfig(data []byte, resultChan chan<- *Config, errChan chan<- error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		errChan <- fmt.Errorf("parse Config: %w", err)
		return
	}
	resultChan <- &cfg
}

func parseDataConfig(data []byte, resultChan chan<- *DataConfig, errChan chan<- error) {
	var dcfg DataConfig
	if err := json.Unmarshal(data, &dcfg); err != nil {
		errChan <- fmt.Errorf("parse DataConfig: %w", err)
		return
	}
	resultChan <- &dcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	dcfgChan <-chan *DataConfig,
	errChan <-chan error,
) (*Config, *DataConfig, error) {
	var (
		cfg    *Config
		dcfg   *DataConfig
		errors []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case d := <-dcfgChan:
			dcfg = d
		case err := <-errChan:
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return nil, nil, combineErrors(errors)
	}

	if cfg == nil || dcfg == nil {
		return nil, nil, fmt.Errorf("configuration partially loaded")
	}

	return cfg, dcfg, nil
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	msg := "multiple configuration errors:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

func (c *Config) applyEnv() {
	if v := os.Getenv("FLIGHTS_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("FLIGHTS_FILE"); v != "" {
		c.FlightsFile = v
	}
	if v := os.Getenv("FLIGHTS_DESCRIPTOR_FILE"); v != "" {
		c.DescriptorFile = v
	}
	if v := os.Getenv("FLIGHTS_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("FLIGHTS_LOG"); v != "" {
		c.LogName = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = Duration(15 * time.Second)
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = Duration(30 * time.Second)
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.FlightsFile == "" {
		c.FlightsFile = "data.csv"
	}
	if c.DescriptorFile == "" {
		c.DescriptorFile = "columns.csv"
	}
	if c.CheckInterval == 0 {
		c.CheckInterval = Duration(time.Minute)
	}
	if c.LogName == "" {
		c.LogName = "app.log"
	}
	if c.LogMaxSize == "" {
		c.LogMaxSize = "10 * 1024 * 1024"
	}
	if c.PidFile == "" {
		c.PidFile = "dashboard.pid"
	}
	if c.ReportDir == "" {
		c.ReportDir = "report"
	}
}

// FlightsPath 航班数据文件完整路径
func (c *Config) FlightsPath() string {
	return filepath.Join(c.DataDir, c.FlightsFile)
}

// DescriptorPath 列描述文件完整路径
func (c *Config) DescriptorPath() string {
	return filepath.Join(c.DataDir, c.DescriptorFile)
}

func (dc *DataConfig) applyDefaults() {
	if dc.EventDate == "" {
		dc.EventDate = "2023-10-07"
	}
	if dc.TimestampColumn == "" {
		dc.TimestampColumn = "departure_time"
	}
	if len(dc.Dimensions) == 0 {
		dc.Dimensions = map[string]string{
			"hour":         "departure_time_hour",
			"day":          "departure_time_day",
			"continent":    "continent",
			"country":      "country_name",
			"municipality": "municipality",
		}
	}
	if dc.BeforeIndicator == "" {
		dc.BeforeIndicator = "before_7_10_2023"
	}
	if dc.AfterIndicator == "" {
		dc.AfterIndicator = "after_7_10_2023"
	}
	if dc.AirportColumn == "" {
		dc.AirportColumn = "airportName"
	}
	if dc.LatitudeColumn == "" {
		dc.LatitudeColumn = "latitude_deg"
	}
	if dc.LongitudeColumn == "" {
		dc.LongitudeColumn = "longitude_deg"
	}
	if dc.CityColumn == "" {
		dc.CityColumn = "municipality"
	}
	if dc.HourColumn == "" {
		dc.HourColumn = "departure_time_hour"
	}
	if dc.Home.Name == "" {
		dc.Home.Name = "Ben Gurion International Airport"
		dc.Home.Lat = 32.0114
		dc.Home.Long = 34.8867
	}
	if dc.DefaultTopN == 0 {
		dc.DefaultTopN = 15
	}
	if dc.MaxTopN == 0 {
		dc.MaxTopN = 30
	}
	if dc.DescriptorCharset == "" {
		dc.DescriptorCharset = "iso-8859-1"
	}
	if dc.StrictDescriptors == nil {
		strict := true
		dc.StrictDescriptors = &strict
	}
}

// Validate checks the values that would otherwise fail deep inside a chart.
func (dc *DataConfig) Validate() error {
	if _, err := time.Parse(eventDateLayout, dc.EventDate); err != nil {
		return fmt.Errorf("event_date %q: %w", dc.EventDate, err)
	}
	if dc.DefaultTopN < 1 || dc.DefaultTopN > dc.MaxTopN {
		return fmt.Errorf("default_top_n %d outside 1..%d", dc.DefaultTopN, dc.MaxTopN)
	}
	return nil
}

// Event 返回事件日期(UTC 零点)
func (dc *DataConfig) Event() time.Time {
	t, _ := time.Parse(eventDateLayout, dc.EventDate)
	return t
}

// Strict reports whether a missing descriptor row is a fatal load error.
func (dc *DataConfig) Strict() bool {
	return dc.StrictDescriptors == nil || *dc.StrictDescriptors
}

// DimensionColumn 根据维度名取列名
func (dc *DataConfig) DimensionColumn(name string) (string, bool) {
	mu.RLock()
	defer mu.RUnlock()
	col, ok := dc.Dimensions[name]
	return col, ok
}

// DimensionNames 返回排序后的维度名
func (dc *DataConfig) DimensionNames() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(dc.Dimensions))
	for name := range dc.Dimensions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetDimension registers or replaces a dimension mapping.
func (dc *DataConfig) SetDimension(name, column string) {
	mu.Lock()
	defer mu.Unlock()
	if dc.Dimensions == nil {
		dc.Dimensions = map[string]string{}
	}
	dc.Dimensions[name] = column
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON 实现json.Marshaler接口
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
