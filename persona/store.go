package persona

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Store は、ペルソナ設定の上書き分のディスクへの読み書きを管理します。
// 埋め込みの既定値はそのままに、ユーザーがカスタマイズした
// 表示名・目標・背景のみを保存します。
type Store struct {
	dataDir string
}

// NewStore は、新しい Store を生成します。
func NewStore(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

func (s *Store) path() string {
	return filepath.Join(s.dataDir, "personas", "overrides.yaml")
}

// Load は、保存された上書き分を読み込み、Registry に適用します。
// ファイルがなければ何もしません（エラーではない）。
func (s *Store) Load(r *Registry) error {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read persona overrides: %w", err)
	}

	var overrides []*Override
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("failed to unmarshal persona overrides: %w", err)
	}

	for _, o := range overrides {
		p, ok := r.personas[o.Identity]
		if !ok {
			continue
		}
		if o.DisplayName != "" {
			p.DisplayName = o.DisplayName
		}
		if o.Goal != "" {
			p.Goal = o.Goal
		}
		if o.Backstory != "" {
			p.Backstory = o.Backstory
		}
	}
	return nil
}

// Save は、上書き分をファイルに保存します。
func (s *Store) Save(overrides []*Override) error {
	if len(overrides) == 0 {
		return nil
	}

	data, err := yaml.Marshal(overrides)
	if err != nil {
		return fmt.Errorf("failed to marshal persona overrides: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path()), 0755); err != nil {
		return fmt.Errorf("failed to create persona override directory: %w", err)
	}
	if err := os.WriteFile(s.path(), data, 0644); err != nil {
		return fmt.Errorf("failed to write persona overrides: %w", err)
	}
	return nil
}
