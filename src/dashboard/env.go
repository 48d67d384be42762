package dashboard

import (
	"fmt"
	"sync"

	"github.com/go-gota/gota/dataframe"

	"FlightsDashboard/src/config"
	"FlightsDashboard/src/dataset"
	"FlightsDashboard/src/datasource/file"
	"FlightsDashboard/src/processor"
	"FlightsDashboard/src/storage"
)

// Env is the prepared input of every chart build: the loaded dataset plus the
// flight table with its period column.
type Env struct {
	Dataset *dataset.Dataset
	Flights dataframe.DataFrame
	Data    *config.DataConfig
}

// Label 列显示名
func (e *Env) Label(column string) string {
	return e.Dataset.Descriptors.Label(column)
}

// envSource derives an Env from the cached dataset, once per loaded dataset.
type envSource struct {
	cache  *file.DatasetCache
	dcfg   *config.DataConfig
	logger *storage.Logger

	mu      sync.Mutex
	ds      *dataset.Dataset
	env     *Env
	loadErr string // 当前仍在使用旧数据集的原因
}

// get returns the Env of the cached dataset. A failed reload keeps serving the
// previous dataset and logs the error once.
func (s *envSource) get() (*Env, error) {
	ds, err := s.cache.Get()
	if ds == nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case err != nil && err.Error() != s.loadErr:
		s.loadErr = err.Error()
		s.logger.Errorf("reload failed, serving dataset %s: %v", ds.Fingerprint, err)
	case err == nil:
		s.loadErr = ""
	}
	if s.ds == ds && s.env != nil {
		return s.env, nil
	}

	flights, err := processor.AddPeriod(ds.Flights, s.dcfg.TimestampColumn, s.dcfg.Event())
	if err != nil {
		return nil, fmt.Errorf("derive period: %w", err)
	}

	report, err := processor.CheckIndicators(flights, s.dcfg.BeforeIndicator, s.dcfg.AfterIndicator)
	switch {
	case err != nil:
		s.logger.Warning("indicator check skipped: " + err.Error())
	case !report.OK():
		s.logger.Warningf("indicator columns disagree with the derived period: %d of %d rows not exactly one, %d disagree",
			report.NotOne, report.Rows, report.Disagree)
	}

	s.logger.Infof("dataset loaded: %d rows, %d columns, fingerprint %s", flights.Nrow(), flights.Ncol(), ds.Fingerprint)
	s.ds = ds
	s.env = &Env{Dataset: ds, Flights: flights, Data: s.dcfg}
	return s.env, nil
}

// reloadError 返回最近一次失败的重新加载, 没有则为空
func (s *envSource) reloadError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}
