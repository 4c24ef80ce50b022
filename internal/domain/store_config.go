package domain

// StoreConfig is the tenant's branding and landing-page content edited from
// the customization dashboard. Its shape mirrors the /user/config document.
type StoreConfig struct {
	StoreName   string      `json:"storeName" validate:"required,max=120"`
	Logo        string      `json:"logo,omitempty" validate:"omitempty,url"`
	Colors      Colors      `json:"colors"`
	Fonts       Fonts       `json:"fonts"`
	LandingPage LandingPage `json:"landingPage"`
	Footer      Footer      `json:"footer"`
	Currency    string      `json:"currency,omitempty" validate:"omitempty,len=3"`
	Locale      string      `json:"locale,omitempty" validate:"omitempty,bcp47_language_tag"`
}

// Colors are CSS hex color tokens.
type Colors struct {
	Primary    string `json:"primary,omitempty" validate:"omitempty,hexcolor"`
	Secondary  string `json:"secondary,omitempty" validate:"omitempty,hexcolor"`
	Accent     string `json:"accent,omitempty" validate:"omitempty,hexcolor"`
	Background string `json:"background,omitempty" validate:"omitempty,hexcolor"`
	Text       string `json:"text,omitempty" validate:"omitempty,hexcolor"`
}

type Fonts struct {
	Heading string `json:"heading,omitempty" validate:"omitempty,max=80"`
	Body    string `json:"body,omitempty" validate:"omitempty,max=80"`
}

type LandingPage struct {
	Hero     Hero      `json:"hero"`
	Features []Feature `json:"features" validate:"max=12,dive"`
}

type Hero struct {
	Title    string `json:"title" validate:"max=200"`
	Subtitle string `json:"subtitle,omitempty" validate:"omitempty,max=500"`
	CTAText  string `json:"ctaText,omitempty" validate:"omitempty,max=60"`
	Image    string `json:"image,omitempty" validate:"omitempty,url"`
}

// Feature is one highlighted selling point on the landing page.
type Feature struct {
	Icon        IconName `json:"icon" validate:"required,oneof=truck shield star heart gift clock tag support"`
	Title       string   `json:"title" validate:"required,max=120"`
	Description string   `json:"description,omitempty" validate:"omitempty,max=500"`
}

type Footer struct {
	Contact Contact      `json:"contact"`
	Social  []SocialLink `json:"social,omitempty" validate:"omitempty,dive"`
}

// Contact.Phone is also the destination of checkout messages.
type Contact struct {
	Phone   string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Address string `json:"address,omitempty" validate:"omitempty,max=500"`
}

type SocialLink struct {
	Name string `json:"name" validate:"required,max=40"`
	URL  string `json:"url" validate:"required,url"`
}

// IconName is the closed set of icons a landing-page feature may use.
type IconName string

const (
	IconTruck   IconName = "truck"
	IconShield  IconName = "shield"
	IconStar    IconName = "star"
	IconHeart   IconName = "heart"
	IconGift    IconName = "gift"
	IconClock   IconName = "clock"
	IconTag     IconName = "tag"
	IconSupport IconName = "support"
)

var iconGlyphs = map[IconName]string{
	IconTruck:   "🚚",
	IconShield:  "🛡",
	IconStar:    "⭐",
	IconHeart:   "❤",
	IconGift:    "🎁",
	IconClock:   "⏰",
	IconTag:     "🏷",
	IconSupport: "💬",
}

// Glyph returns the display symbol for the icon.
func (n IconName) Glyph() (string, bool) {
	g, ok := iconGlyphs[n]
	return g, ok
}

// DefaultStoreConfig is served until the tenant saves its own configuration.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		StoreName: "My Store",
		Colors: Colors{
			Primary:    "#1f2937",
			Secondary:  "#4b5563",
			Accent:     "#f59e0b",
			Background: "#ffffff",
			Text:       "#111827",
		},
		Fonts: Fonts{Heading: "Inter", Body: "Inter"},
		LandingPage: LandingPage{
			Hero: Hero{Title: "Welcome", CTAText: "Shop now"},
			Features: []Feature{
				{Icon: IconTruck, Title: "Fast delivery"},
				{Icon: IconShield, Title: "Secure checkout"},
				{Icon: IconSupport, Title: "Friendly support"},
			},
		},
		Currency: "USD",
		Locale:   "en",
	}
}
