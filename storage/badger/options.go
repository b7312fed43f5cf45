package badger

import (
	"github.com/dgraph-io/badger/v3"

	"github.com/janelia-flyem/schemgen/schemgen"
	"github.com/janelia-flyem/schemgen/storage"
)

// logger sends badger's own messages through the schemgen log.
type logger struct{}

func (logger) Errorf(format string, args ...interface{})   { schemgen.Errorf(format, args...) }
func (logger) Warningf(format string, args ...interface{}) { schemgen.Warningf(format, args...) }
func (logger) Infof(format string, args ...interface{})    { schemgen.Debugf(format, args...) }
func (logger) Debugf(format string, args ...interface{})   { schemgen.Debugf(format, args...) }

func getOptions(c dbConfig, config storage.Config) (*badger.Options, error) {
	var opts badger.Options
	if c.inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(c.path)
	}
	opts = opts.WithLogger(logger{}).WithNumVersionsToKeep(1).WithSyncWrites(DefaultSyncWrites)

	readOnly, found, err := config.GetBool("readonly")
	if err != nil {
		return nil, err
	}
	if found {
		opts = opts.WithReadOnly(readOnly)
	}

	valueSizeThresh, found, err := config.GetInt("value_threshold")
	if err != nil {
		return nil, err
	}
	if found {
		opts = opts.WithValueThreshold(int64(valueSizeThresh))
	}

	vlogSize, found, err := config.GetInt("value_log_file_size")
	if err != nil {
		return nil, err
	}
	if found {
		opts = opts.WithValueLogFileSize(int64(vlogSize))
	}
	return &opts, nil
}
