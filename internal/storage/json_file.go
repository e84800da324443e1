package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/JamesPrial/mcp-fleet/pkg/errors"
)

const (
	recordExt  = ".json"
	backupDir  = ".backup"
	recordPerm = 0o644
)

// JSONFileBackend stores each entity as {id}.json in one directory.
type JSONFileBackend[T Entity] struct {
	dir string
	backendOptions
}

// NewJSONFileBackend opens dir, creating it and its parents if absent.
func NewJSONFileBackend[T Entity](dir string, opts ...BackendOption) (*JSONFileBackend[T], error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New(errors.ErrCodeConfiguration, "storage directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeStorageInitialization, "failed to create storage directory %s", dir)
	}

	b := &JSONFileBackend[T]{
		dir:            dir,
		backendOptions: newBackendOptions("storage.json_file", opts),
	}
	b.logger.Info("JSON file backend ready",
		slog.String("directory", dir),
		slog.String("missing_attribute_policy", b.policy.String()),
	)
	return b, nil
}

// Dir returns the storage directory.
func (b *JSONFileBackend[T]) Dir() string {
	return b.dir
}

func (b *JSONFileBackend[T]) Name() string {
	return BackendJSONFile
}

func (b *JSONFileBackend[T]) Close() error {
	return nil
}

// recordPath maps an id to its file. Ids must be plain file names.
func (b *JSONFileBackend[T]) recordPath(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", errors.ValidationRequired("id")
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", errors.ValidationInvalid("id", "must not contain path separators")
	}
	return filepath.Join(b.dir, id+recordExt), nil
}

func (b *JSONFileBackend[T]) Create(ctx context.Context, entity T) (_ T, err error) {
	done := b.begin(ctx, BackendJSONFile, "create")
	defer func() { done(err) }()

	if err := checkContext(ctx); err != nil {
		return entity, err
	}
	id := entity.EntityID()
	path, err := b.recordPath(id)
	if err != nil {
		return entity, err
	}

	data, err := encodeEntity(entity)
	if err != nil {
		return entity, err
	}
	if err := createFileAtomic(path, data, recordPerm); err != nil {
		if os.IsExist(err) {
			b.logger.WarnContext(ctx, "Entity already exists", slog.String("entity_id", id))
			return entity, errors.DuplicateID(id)
		}
		return entity, errors.Wrapf(err, errors.ErrCodeStorageIO, "failed to write entity %s", id)
	}

	b.logger.DebugContext(ctx, "Entity created", slog.String("entity_id", id))
	return entity, nil
}

func (b *JSONFileBackend[T]) Get(ctx context.Context, id string) (_ *T, err error) {
	done := b.begin(ctx, BackendJSONFile, "get")
	defer func() { done(err) }()

	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	entity, err := b.load(ctx, id)
	if err != nil || entity == nil {
		return nil, err
	}
	return entity, nil
}

// load reads one record. Missing and corrupt records both yield nil.
func (b *JSONFileBackend[T]) load(ctx context.Context, id string) (*T, error) {
	path, err := b.recordPath(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.ErrCodeStorageIO, "failed to read entity %s", id)
	}

	entity, err := decodeEntity[T](data)
	if err != nil {
		b.corrupt(ctx, BackendJSONFile, id, err)
		return nil, nil
	}
	return &entity, nil
}

func (b *JSONFileBackend[T]) List(ctx context.Context, filter *Filter) (_ []T, err error) {
	done := b.begin(ctx, BackendJSONFile, "list")
	defer func() { done(err) }()

	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	names, err := doublestar.Glob(os.DirFS(b.dir), "*"+recordExt)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeStorageIO, "failed to enumerate %s", b.dir)
	}
	sort.Strings(names)

	entities := make([]T, 0, len(names))
	for _, name := range names {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}
		id := strings.TrimSuffix(name, recordExt)
		data, err := os.ReadFile(filepath.Join(b.dir, name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrapf(err, errors.ErrCodeStorageIO, "failed to read entity %s", id)
		}
		entity, err := decodeEntity[T](data)
		if err != nil {
			b.corrupt(ctx, BackendJSONFile, id, err)
			continue
		}
		entities = append(entities, entity)
	}

	return ApplyFilter(entities, filter, b.policy), nil
}

func (b *JSONFileBackend[T]) Update(ctx context.Context, id string, patch map[string]interface{}) (_ *T, err error) {
	done := b.begin(ctx, BackendJSONFile, "update")
	defer func() { done(err) }()

	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	current, err := b.load(ctx, id)
	if err != nil || current == nil {
		return nil, err
	}

	updated, err := mergePatch(*current, patch, b.now())
	if err != nil {
		return nil, err
	}
	data, err := encodeEntity(updated)
	if err != nil {
		return nil, err
	}

	path, _ := b.recordPath(id)
	if err := b.backupRecord(path); err != nil {
		return nil, err
	}
	if err := writeFileAtomic(path, data, recordPerm); err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeStorageIO, "failed to write entity %s", id)
	}

	b.logger.DebugContext(ctx, "Entity updated",
		slog.String("entity_id", id),
		slog.Int("fields", len(patch)),
	)
	return &updated, nil
}

func (b *JSONFileBackend[T]) Delete(ctx context.Context, id string) (_ bool, err error) {
	done := b.begin(ctx, BackendJSONFile, "delete")
	defer func() { done(err) }()

	if err := checkContext(ctx); err != nil {
		return false, err
	}
	path, err := b.recordPath(id)
	if err != nil {
		return false, err
	}
	if err := b.backupRecord(path); err != nil {
		return false, err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, errors.ErrCodeStorageIO, "failed to delete entity %s", id)
	}

	b.logger.DebugContext(ctx, "Entity deleted", slog.String("entity_id", id))
	return true, nil
}

func (b *JSONFileBackend[T]) Exists(ctx context.Context, id string) (_ bool, err error) {
	done := b.begin(ctx, BackendJSONFile, "exists")
	defer func() { done(err) }()

	if err := checkContext(ctx); err != nil {
		return false, err
	}
	path, err := b.recordPath(id)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, errors.ErrCodeStorageIO, "failed to check entity %s", id)
	}
	return info.Mode().IsRegular(), nil
}

// backupRecord copies the current version of path into the backup
// directory when backups are enabled. A missing record is not an error.
func (b *JSONFileBackend[T]) backupRecord(path string) error {
	if !b.backup {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeStorageIO, "failed to read record for backup")
	}
	dir := filepath.Join(b.dir, backupDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageIO, "failed to create backup directory")
	}
	if err := writeFileAtomic(filepath.Join(dir, filepath.Base(path)), data, recordPerm); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageIO, "failed to write backup")
	}
	return nil
}
