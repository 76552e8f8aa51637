package persona

// Persona は、各 Identity の人格設定を定義します。
// この情報は、LLMに渡すプロンプトのベースとなります。
type Persona struct {
	Identity    Identity `yaml:"identity"`
	DisplayName string   `yaml:"displayName"`
	Team        string   `yaml:"team"`
	Goal        string   `yaml:"goal"`
	Backstory   string   `yaml:"backstory"`
	Expertise   string   `yaml:"expertise"`

	// Aliases は、自由入力のテキストをこのペルソナに解決するための
	// 受理パターンです。照合は大文字小文字と空白を無視した部分一致です。
	Aliases []string `yaml:"aliases"`

	// QuickReplies は、LLM呼び出しを省略する場合に使われる
	// 定型応答のテンプレートです。
	QuickReplies []string `yaml:"quickReplies,omitempty"`
}

// Override は、ディスクに保存されたペルソナ設定の上書き分です。
// 空のフィールドは既定値を維持します。
type Override struct {
	Identity    Identity `yaml:"identity"`
	DisplayName string   `yaml:"displayName,omitempty"`
	Goal        string   `yaml:"goal,omitempty"`
	Backstory   string   `yaml:"backstory,omitempty"`
}
