package persona

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/sat8bit/roundtable/configs"
)

// Registry は、固定の6役職とそのペルソナ定義を保持し、
// 自由入力の名前を Identity に解決します。
type Registry struct {
	personas map[Identity]*Persona
	order    []Identity
}

// NewRegistry は、埋め込みリソースからペルソナ定義を読み込んで Registry を生成します。
func NewRegistry() (*Registry, error) {
	var doc struct {
		Personas []*Persona `yaml:"personas"`
	}
	if err := yaml.Unmarshal(configs.Personas, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embedded personas: %w", err)
	}

	r := &Registry{
		personas: make(map[Identity]*Persona, len(doc.Personas)),
		order:    All(),
	}
	for _, p := range doc.Personas {
		r.personas[p.Identity] = p
	}

	// 6役職すべての定義が揃っていることを保証する
	for _, id := range r.order {
		if _, ok := r.personas[id]; !ok {
			return nil, fmt.Errorf("embedded personas missing definition for %q", id)
		}
	}
	return r, nil
}

// Persona は、指定された Identity のペルソナ定義を返します。
func (r *Registry) Persona(id Identity) *Persona {
	return r.personas[id]
}

// DisplayName は、指定された Identity の表示名を返します。
// 未知の Identity には空文字を返します。
func (r *Registry) DisplayName(id Identity) string {
	if p, ok := r.personas[id]; ok {
		return p.DisplayName
	}
	return ""
}

// Resolve は、自由入力のテキストを Identity に解決します。
// 照合は大文字小文字と空白を無視した部分一致で、複数一致する場合は
// Identity の定義順で最初の一致を採用します。この曖昧さは既知の仕様です
// （例: "IT" はエイリアス "IT" を含む任意の入力に一致します）。
func (r *Registry) Resolve(input string) (Identity, bool) {
	needle := normalize(input)
	if needle == "" {
		return "", false
	}
	for _, id := range r.order {
		for _, alias := range r.personas[id].Aliases {
			if strings.Contains(needle, normalize(alias)) {
				return id, true
			}
		}
	}
	return "", false
}

// ResolveAll は、参加者名のリストを重複なく Identity のリストに解決します。
// 解決できなかった名前は無視されます。挿入順は入力順を保ちます。
func (r *Registry) ResolveAll(names []string) []Identity {
	var resolved []Identity
	for _, name := range names {
		id, ok := r.Resolve(name)
		if !ok || id == Moderator {
			continue
		}
		if !lo.Contains(resolved, id) {
			resolved = append(resolved, id)
		}
	}
	return resolved
}

// ExpertNames は、有効な専門家の案内文字列を返します。
// 解決に失敗した際のシステムメッセージで使用します。
func (r *Registry) ExpertNames() string {
	names := lo.Map(Experts(), func(id Identity, _ int) string {
		p := r.personas[id]
		return fmt.Sprintf("%s(%s)", firstAlias(p), p.Team)
	})
	return strings.Join(names, ", ")
}

func firstAlias(p *Persona) string {
	if len(p.Aliases) > 0 {
		return p.Aliases[0]
	}
	return p.DisplayName
}

func normalize(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", ""))
}
