package persona

// Identity は、討論に参加する固定の6役職を表す型です。
// 進行役と5つの専門チームリーダーのみが存在します。
type Identity string

const (
	Moderator      Identity = "moderator"
	DesignLead     Identity = "design"
	SalesLead      Identity = "sales"
	ProductionLead Identity = "production"
	MarketingLead  Identity = "marketing"
	ITLead         Identity = "it"
)

// All は、すべての Identity を定義順で返します。
// エイリアス解決はこの順序で最初に一致したものを採用します。
func All() []Identity {
	return []Identity{Moderator, DesignLead, SalesLead, ProductionLead, MarketingLead, ITLead}
}

// Experts は、進行役を除く5つの専門家 Identity を定義順で返します。
func Experts() []Identity {
	return []Identity{DesignLead, SalesLead, ProductionLead, MarketingLead, ITLead}
}
