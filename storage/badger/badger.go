// Package badger is a structure container engine backed by BadgerDB.
package badger

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blang/semver"
	"github.com/dgraph-io/badger/v3"

	"github.com/janelia-flyem/schemgen/blocks"
	"github.com/janelia-flyem/schemgen/schemgen"
	"github.com/janelia-flyem/schemgen/storage"
)

const (
	// DefaultSyncWrites is true if all writes are synced to disk, thereby making db resilient
	// at cost of speed.
	DefaultSyncWrites = false

	// DefaultCompression is used for stored voxel values unless "compression" is set.
	DefaultCompression = schemgen.Snappy

	syncInterval = 30 * time.Second
)

// key prefixes
const (
	metadataPrefix byte = 0x01
	voxelPrefix    byte = 0x02
)

var metadataKey = []byte{metadataPrefix}

func init() {
	ver, err := semver.Make("0.2.0")
	if err != nil {
		schemgen.Errorf("Unable to make semver in badger: %v\n", err)
	}
	e := Engine{"badger", "BadgerDB", ver}
	storage.RegisterEngine(e)
}

// --- Engine Implementation ------

type Engine struct {
	name   string
	desc   string
	semver semver.Version
}

func (e Engine) GetName() string {
	return e.name
}

func (e Engine) GetDescription() string {
	return e.desc
}

func (e Engine) GetSemVer() semver.Version {
	return e.semver
}

func (e Engine) String() string {
	return fmt.Sprintf("%s [%s]", e.name, e.semver)
}

// NewContainer returns a badger container.  The passed config must contain a "path"
// string unless "inmemory" is true.
func (e Engine) NewContainer(config storage.StoreConfig) (storage.Container, bool, error) {
	return e.newDB(config)
}

type dbConfig struct {
	path     string
	inMemory bool
	compress schemgen.Compression
}

func parseConfig(config storage.StoreConfig) (c dbConfig, err error) {
	var found bool
	if c.inMemory, _, err = config.GetBool("inmemory"); err != nil {
		return
	}
	c.path, found, err = config.GetString("path")
	if err != nil {
		return
	}
	if !found && !c.inMemory {
		err = fmt.Errorf("%q must be specified for BadgerDB configuration: %w", "path", schemgen.ErrInvalidArgument)
		return
	}
	testing, _, err := config.GetBool("testing")
	if err != nil {
		return
	}
	if testing && c.path != "" {
		c.path = filepath.Join(os.TempDir(), c.path)
	}
	name, _, err := config.GetString("compression")
	if err != nil {
		return
	}
	c.compress, err = schemgen.ParseCompression(name, DefaultCompression)
	return
}

// Periodically sync to prevent too many writes from being buffered
// if the process crashes.
func syncPeriodically(db *BadgerDB) {
	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-db.stopSyncCh:
			schemgen.Debugf("Stopping sync goroutine for badger @ %s\n", db.directory)
			return
		case <-ticker.C:
			db.bdp.Sync()
		}
	}
}

// newDB returns a Badger backend, creating one at path if it doesn't exist.
func (e Engine) newDB(config storage.StoreConfig) (*BadgerDB, bool, error) {
	c, err := parseConfig(config)
	if err != nil {
		return nil, false, err
	}

	created := c.inMemory
	if !c.inMemory {
		// Is there a database already at this path?  If not, create.
		if _, err := os.Stat(c.path); os.IsNotExist(err) {
			schemgen.TimeInfof("Database not already at path (%s). Creating directory...\n", c.path)
			created = true
			if err := os.MkdirAll(c.path, 0744); err != nil {
				return nil, true, fmt.Errorf("can't make directory at %s: %v", c.path, err)
			}
		} else {
			schemgen.TimeInfof("Found directory at %s (err = %v)\n", c.path, err)
		}
	}

	opts, err := getOptions(c, config.Config)
	if err != nil {
		return nil, false, err
	}

	badgerDB := &BadgerDB{
		directory: c.path,
		compress:  c.compress,
	}
	if c.inMemory {
		badgerDB.directory = "memory"
	}

	schemgen.TimeInfof("Opening badger @ %s\n", badgerDB.directory)
	bdp, err := badger.Open(*opts)
	if err != nil {
		return nil, false, err
	}
	badgerDB.bdp = bdp

	if !c.inMemory && !opts.ReadOnly {
		badgerDB.stopSyncCh = make(chan bool)
		go syncPeriodically(badgerDB)
	}
	if created {
		return badgerDB, true, nil
	}

	// otherwise, check if there's been any metadata or we need to initialize it.
	metadataExists, err := badgerDB.metadataExists()
	if err != nil {
		badgerDB.Close()
		return nil, false, err
	}
	return badgerDB, !metadataExists, nil
}

// BadgerDB is a structure container.
type BadgerDB struct {
	// Directory of datastore
	directory string

	compress schemgen.Compression
	bdp      *badger.DB

	// stopSyncCh is used to signal the sync goroutine to stop.
	stopSyncCh chan bool
}

func (db *BadgerDB) String() string {
	return fmt.Sprintf("badger @ %s", db.directory)
}

// Close closes the BadgerDB
func (db *BadgerDB) Close() error {
	if db == nil || db.bdp == nil {
		return nil
	}
	if db.stopSyncCh != nil {
		db.stopSyncCh <- true
	}
	err := db.bdp.Close()
	db.bdp = nil
	schemgen.Infof("Closed Badger DB @ %s\n", db.directory)
	return err
}

func (db *BadgerDB) metadataExists() (bool, error) {
	var found bool
	err := db.bdp.View(func(txn *badger.Txn) error {
		_, err := txn.Get(metadataKey)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		found = err == nil
		return err
	})
	return found, err
}

func voxelKey(p schemgen.Point3d) []byte {
	k := make([]byte, 13)
	k[0] = voxelPrefix
	binary.BigEndian.PutUint32(k[1:5], uint32(p[0]))
	binary.BigEndian.PutUint32(k[5:9], uint32(p[1]))
	binary.BigEndian.PutUint32(k[9:13], uint32(p[2]))
	return k
}

func voxelPos(k []byte) (schemgen.Point3d, error) {
	if len(k) != 13 || k[0] != voxelPrefix {
		return schemgen.Point3d{}, fmt.Errorf("bad voxel key %x", k)
	}
	return schemgen.Point3d{
		int32(binary.BigEndian.Uint32(k[1:5])),
		int32(binary.BigEndian.Uint32(k[5:9])),
		int32(binary.BigEndian.Uint32(k[9:13])),
	}, nil
}

// ---- Container interface ----

func (db *BadgerDB) GetMetadata() (*storage.Metadata, error) {
	if db == nil || db.bdp == nil {
		return nil, fmt.Errorf("can't call GetMetadata on closed BadgerDB")
	}
	var m storage.Metadata
	err := db.bdp.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metadataKey)
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("no metadata in %s: %w", db, schemgen.ErrNotFound)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			_, err := m.UnmarshalMsg(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (db *BadgerDB) PutMetadata(m *storage.Metadata) error {
	if db == nil || db.bdp == nil {
		return fmt.Errorf("can't call PutMetadata on closed BadgerDB")
	}
	val, err := m.MarshalMsg(nil)
	if err != nil {
		return err
	}
	return db.bdp.Update(func(txn *badger.Txn) error {
		return txn.Set(metadataKey, val)
	})
}

func (db *BadgerDB) PutVoxels(voxels []storage.Voxel) error {
	if db == nil || db.bdp == nil {
		return fmt.Errorf("can't call PutVoxels on closed BadgerDB")
	}
	wb := db.bdp.NewWriteBatch()
	defer wb.Cancel()
	for _, v := range voxels {
		enc, err := v.Block.MarshalMsg(nil)
		if err != nil {
			return err
		}
		val, err := schemgen.SerializeData(enc, db.compress, schemgen.CRC32)
		if err != nil {
			return err
		}
		if err := wb.Set(voxelKey(v.Pos), val); err != nil {
			return fmt.Errorf("unable to write voxel %s: %v", v.Pos, err)
		}
	}
	if err := wb.Flush(); err != nil {
		schemgen.Criticalf("Error on flush of %d voxels to %s: %v\n", len(voxels), db, err)
		return err
	}
	return nil
}

func (db *BadgerDB) ForEachVoxel(min, max schemgen.Point3d, fn func(storage.Voxel) error) error {
	if db == nil || db.bdp == nil {
		return fmt.Errorf("can't call ForEachVoxel on closed BadgerDB")
	}
	return db.bdp.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte{voxelPrefix}
		for it.Seek(voxelKey(min)); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			pos, err := voxelPos(item.Key())
			if err != nil {
				return err
			}
			if pos[0] >= max[0] {
				break
			}
			if !pos.Contains(min, max) {
				continue
			}
			var b blocks.Descriptor
			err = item.Value(func(val []byte) error {
				data, _, err := schemgen.DeserializeData(val)
				if err != nil {
					return err
				}
				_, err = b.UnmarshalMsg(data)
				return err
			})
			if err != nil {
				return fmt.Errorf("bad value for voxel %s: %v", pos, err)
			}
			if err := fn(storage.Voxel{Pos: pos, Block: b}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (db *BadgerDB) DeleteAll() error {
	if db == nil || db.bdp == nil {
		return fmt.Errorf("can't call DeleteAll on closed BadgerDB")
	}
	if err := db.bdp.DropPrefix([]byte{voxelPrefix}, metadataKey); err != nil {
		return err
	}
	schemgen.Debugf("Deleted all voxels and metadata in %s\n", db)
	return nil
}
