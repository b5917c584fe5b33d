package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/GoSim-25-26J-441/code-editor-backend/internal/projects/domain"
)

const (
	projectKeyPrefix = "code:project:" // meta hash: code:project:{id}
	projectIndexKey  = "code:projects" // list of project ids in creation order
)

// Each mutation is a Lua script so the guard and the write run as one unit.
// Scripts return 1 on success and a negative code naming the failed guard.
const (
	scriptOK            = 1
	scriptNoProject     = -1
	scriptNoFile        = -2
	scriptPathTaken     = -3
	scriptProjectExists = -4
)

// KEYS: meta, files, code, index. ARGV: id, metaPairCount, meta pairs..., file pairs...
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then return -4 end
local n = tonumber(ARGV[2])
local i = 3
for _ = 1, n do
  redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
  i = i + 2
end
while i < #ARGV do
  redis.call('RPUSH', KEYS[2], ARGV[i])
  redis.call('HSET', KEYS[3], ARGV[i], ARGV[i + 1])
  i = i + 2
end
redis.call('RPUSH', KEYS[4], ARGV[1])
return 1
`)

// KEYS: meta, files, code. ARGV: path, code, lastUpdated.
var appendFileScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return -1 end
if redis.call('HEXISTS', KEYS[3], ARGV[1]) == 1 then return -3 end
redis.call('RPUSH', KEYS[2], ARGV[1])
redis.call('HSET', KEYS[3], ARGV[1], ARGV[2])
redis.call('HSET', KEYS[1], 'lastUpdatedDate', ARGV[3])
return 1
`)

// KEYS: meta, files, code. ARGV: path, code, lastUpdated, reset, dataStatus.
var updateCodeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return -1 end
if redis.call('HEXISTS', KEYS[3], ARGV[1]) == 0 then return -2 end
redis.call('HSET', KEYS[3], ARGV[1], ARGV[2])
redis.call('HSET', KEYS[1], 'lastUpdatedDate', ARGV[3])
if ARGV[4] == '1' then
  redis.call('HSET', KEYS[1], 'dataStatus', ARGV[5])
  redis.call('HSET', KEYS[1], 'logs', '[]')
end
return 1
`)

// KEYS: meta, files, code. ARGV: oldPath, newPath, lastUpdated.
var renameFileScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return -1 end
if redis.call('HEXISTS', KEYS[3], ARGV[1]) == 0 then return -2 end
if redis.call('HEXISTS', KEYS[3], ARGV[2]) == 1 then return -3 end
local paths = redis.call('LRANGE', KEYS[2], 0, -1)
for idx, p in ipairs(paths) do
  if p == ARGV[1] then
    redis.call('LSET', KEYS[2], idx - 1, ARGV[2])
    break
  end
end
local code = redis.call('HGET', KEYS[3], ARGV[1])
redis.call('HDEL', KEYS[3], ARGV[1])
redis.call('HSET', KEYS[3], ARGV[2], code)
redis.call('HSET', KEYS[1], 'lastUpdatedDate', ARGV[3])
return 1
`)

// KEYS: meta, files, code. ARGV: path, lastUpdated.
var removeFileScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return -1 end
if redis.call('HEXISTS', KEYS[3], ARGV[1]) == 0 then return -2 end
redis.call('LREM', KEYS[2], 0, ARGV[1])
redis.call('HDEL', KEYS[3], ARGV[1])
redis.call('HSET', KEYS[1], 'lastUpdatedDate', ARGV[2])
return 1
`)

// KEYS: meta, files, code, index. ARGV: id.
var deleteProjectScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return -1 end
redis.call('DEL', KEYS[1], KEYS[2], KEYS[3])
redis.call('LREM', KEYS[4], 0, ARGV[1])
return 1
`)

// RedisStore keeps a project as three keys: a meta hash, an ordered list of
// file paths and a path -> code hash.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new RedisStore
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Create(ctx context.Context, p *domain.Project) error {
	meta, err := encodeMeta(p)
	if err != nil {
		return err
	}

	args := make([]interface{}, 0, 2+len(meta)+2*len(p.FileSets))
	args = append(args, p.ProjectID, len(meta)/2)
	args = append(args, meta...)
	for _, f := range p.FileSets {
		args = append(args, f.FilePath, f.Code)
	}

	keys := append(s.keys(p.ProjectID), projectIndexKey)
	code, err := createScript.Run(ctx, s.client, keys, args...).Int()
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	if code == scriptProjectExists {
		return domain.ProjectExists(p.ProjectID)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]domain.ProjectSummary, error) {
	ids, err := s.client.LRange(ctx, projectIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list project ids: %w", err)
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.SliceCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HMGet(ctx, s.metaKey(id), "projectId", "projectName", "lang", "lastUpdatedDate")
	}
	if len(ids) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("load project summaries: %w", err)
		}
	}

	out := make([]domain.ProjectSummary, 0, len(ids))
	for _, cmd := range cmds {
		vals := cmd.Val()
		// the project can disappear between LRANGE and HMGET
		if vals[0] == nil {
			continue
		}
		out = append(out, domain.ProjectSummary{
			ProjectID:       str(vals[0]),
			ProjectName:     str(vals[1]),
			Lang:            str(vals[2]),
			LastUpdatedDate: str(vals[3]),
		})
	}
	return out, nil
}

func (s *RedisStore) Get(ctx context.Context, projectID string) (*domain.Project, error) {
	keys := s.keys(projectID)

	var (
		metaCmd  *redis.MapStringStringCmd
		pathsCmd *redis.StringSliceCmd
		codeCmd  *redis.MapStringStringCmd
	)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		metaCmd = pipe.HGetAll(ctx, keys[0])
		pathsCmd = pipe.LRange(ctx, keys[1], 0, -1)
		codeCmd = pipe.HGetAll(ctx, keys[2])
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}

	meta := metaCmd.Val()
	if len(meta) == 0 {
		return nil, domain.ProjectNotFound()
	}

	p, err := decodeMeta(meta)
	if err != nil {
		return nil, err
	}

	code := codeCmd.Val()
	p.FileSets = make([]domain.File, 0, len(pathsCmd.Val()))
	for _, path := range pathsCmd.Val() {
		p.FileSets = append(p.FileSets, domain.File{FilePath: path, Code: code[path]})
	}
	return p, nil
}

func (s *RedisStore) AppendFile(ctx context.Context, projectID string, f domain.File, lastUpdated string) error {
	code, err := appendFileScript.Run(ctx, s.client, s.keys(projectID), f.FilePath, f.Code, lastUpdated).Int()
	if err != nil {
		return fmt.Errorf("append file: %w", err)
	}
	return scriptResult(code, f.FilePath, f.FilePath)
}

func (s *RedisStore) UpdateFileCode(ctx context.Context, projectID string, u domain.CodeUpdate) error {
	reset := "0"
	if u.ResetRuntime {
		reset = "1"
	}
	code, err := updateCodeScript.Run(ctx, s.client, s.keys(projectID),
		u.FilePath, u.Code, u.LastUpdatedDate, reset, u.DataStatus).Int()
	if err != nil {
		return fmt.Errorf("update file code: %w", err)
	}
	return scriptResult(code, u.FilePath, u.FilePath)
}

func (s *RedisStore) RenameFile(ctx context.Context, projectID, oldPath, newPath, lastUpdated string) error {
	code, err := renameFileScript.Run(ctx, s.client, s.keys(projectID), oldPath, newPath, lastUpdated).Int()
	if err != nil {
		return fmt.Errorf("rename file: %w", err)
	}
	return scriptResult(code, oldPath, newPath)
}

func (s *RedisStore) RemoveFile(ctx context.Context, projectID, filePath, lastUpdated string) error {
	code, err := removeFileScript.Run(ctx, s.client, s.keys(projectID), filePath, lastUpdated).Int()
	if err != nil {
		return fmt.Errorf("remove file: %w", err)
	}
	return scriptResult(code, filePath, filePath)
}

func (s *RedisStore) Delete(ctx context.Context, projectID string) error {
	keys := append(s.keys(projectID), projectIndexKey)
	code, err := deleteProjectScript.Run(ctx, s.client, keys, projectID).Int()
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if code == scriptNoProject {
		return domain.NotFound("Project not found or already deleted.")
	}
	return nil
}

// Migrate preloads the scripts so the first mutation does not pay for EVAL.
func (s *RedisStore) Migrate(ctx context.Context) error {
	for _, script := range []*redis.Script{
		createScript, appendFileScript, updateCodeScript,
		renameFileScript, removeFileScript, deleteProjectScript,
	} {
		if err := script.Load(ctx, s.client).Err(); err != nil {
			return fmt.Errorf("load script: %w", err)
		}
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) metaKey(projectID string) string {
	return fmt.Sprintf("%s{%s}", projectKeyPrefix, projectID)
}

// keys returns meta, files and code keys. The hash tag keeps them in one slot.
func (s *RedisStore) keys(projectID string) []string {
	meta := s.metaKey(projectID)
	return []string{meta, meta + ":files", meta + ":code"}
}

func scriptResult(code int, missingPath, takenPath string) error {
	switch code {
	case scriptOK:
		return nil
	case scriptNoProject:
		return domain.ProjectNotFound()
	case scriptNoFile:
		return domain.FileNotFound(missingPath)
	case scriptPathTaken:
		return domain.FileExists(takenPath)
	default:
		return fmt.Errorf("unexpected script result %d", code)
	}
}

func encodeMeta(p *domain.Project) ([]interface{}, error) {
	deps := p.Dependencies
	if deps == nil {
		deps = map[string]string{}
	}
	depsJSON, err := json.Marshal(deps)
	if err != nil {
		return nil, fmt.Errorf("marshal dependencies: %w", err)
	}

	meta := []interface{}{
		"projectId", p.ProjectID,
		"projectName", p.ProjectName,
		"lang", p.Lang,
		"lastUpdatedDate", p.LastUpdatedDate,
		"dependencies", string(depsJSON),
	}
	if p.DataStatus != nil {
		meta = append(meta, "dataStatus", *p.DataStatus)
	}
	if p.Logs != nil {
		logsJSON, err := json.Marshal(*p.Logs)
		if err != nil {
			return nil, fmt.Errorf("marshal logs: %w", err)
		}
		if *p.Logs == nil {
			logsJSON = []byte("[]")
		}
		meta = append(meta, "logs", string(logsJSON))
	}
	if p.Port != nil {
		meta = append(meta, "port", strconv.Itoa(*p.Port))
	}
	return meta, nil
}

func decodeMeta(meta map[string]string) (*domain.Project, error) {
	p := &domain.Project{
		ProjectID:       meta["projectId"],
		ProjectName:     meta["projectName"],
		Lang:            meta["lang"],
		LastUpdatedDate: meta["lastUpdatedDate"],
		Dependencies:    map[string]string{},
	}

	if raw := meta["dependencies"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &p.Dependencies); err != nil {
			return nil, fmt.Errorf("unmarshal dependencies: %w", err)
		}
	}
	if status, ok := meta["dataStatus"]; ok {
		p.DataStatus = &status
	}
	if raw, ok := meta["logs"]; ok {
		logs := []string{}
		if err := json.Unmarshal([]byte(raw), &logs); err != nil {
			return nil, fmt.Errorf("unmarshal logs: %w", err)
		}
		p.Logs = &logs
	}
	if raw, ok := meta["port"]; ok {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parse port: %w", err)
		}
		p.Port = &port
	}
	return p, nil
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

var _ Store = (*RedisStore)(nil)
