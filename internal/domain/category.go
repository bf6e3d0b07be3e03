package domain

// CategoryKind selects category-specific item behaviour
type CategoryKind string

const (
	KindVocabulary CategoryKind = "vocabulary"
	KindAlgorithm  CategoryKind = "algorithm"
	KindGeneric    CategoryKind = "generic"
)

// Built-in category identifiers
const (
	CategoryVocabulary = "VOCABULARY"
	CategoryAlgorithm  = "ALGORITHM"
	CategoryDaily      = "DAILY"
	CategoryReading    = "READING"
	CategoryMindset    = "MINDSET"

	// DefaultCategory is active on startup and after the active custom category is deleted
	DefaultCategory = CategoryVocabulary

	// CustomPrefix prefixes identifiers of user-created categories
	CustomPrefix = "CUSTOM_"
)

// Theme is the presentation theme of a category. The core never interprets it.
type Theme struct {
	Label       string `json:"label"`
	Color       string `json:"color"`
	BorderColor string `json:"borderColor"`
	AccentColor string `json:"accentColor"`
}

// Category groups items under a label
type Category struct {
	ID          string       `json:"id"`
	Label       string       `json:"label"`
	IconName    string       `json:"iconName"`
	Description string       `json:"description"`
	Theme       Theme        `json:"theme"`
	Kind        CategoryKind `json:"kind"`
	IsCustom    bool         `json:"isCustom,omitempty"`
}

// ThemePresets are the themes a user-created category may pick from
var ThemePresets = []Theme{
	{Label: "Yellow", Color: "bg-yellow-100", BorderColor: "border-yellow-400", AccentColor: "text-yellow-700"},
	{Label: "Blue", Color: "bg-blue-100", BorderColor: "border-blue-400", AccentColor: "text-blue-700"},
	{Label: "Green", Color: "bg-green-100", BorderColor: "border-green-400", AccentColor: "text-green-700"},
	{Label: "Purple", Color: "bg-purple-100", BorderColor: "border-purple-400", AccentColor: "text-purple-700"},
	{Label: "Red", Color: "bg-red-100", BorderColor: "border-red-400", AccentColor: "text-red-700"},
	{Label: "Pink", Color: "bg-pink-100", BorderColor: "border-pink-400", AccentColor: "text-pink-700"},
	{Label: "Orange", Color: "bg-orange-100", BorderColor: "border-orange-400", AccentColor: "text-orange-700"},
	{Label: "Gray", Color: "bg-gray-200", BorderColor: "border-gray-400", AccentColor: "text-gray-700"},
}

// ThemeByLabel returns the preset with the given label
func ThemeByLabel(label string) (Theme, bool) {
	for _, t := range ThemePresets {
		if t.Label == label {
			return t, true
		}
	}
	return Theme{}, false
}

// BuiltinCategories returns the fixed categories in display order
func BuiltinCategories() []Category {
	return []Category{
		{
			ID:          CategoryVocabulary,
			Label:       "单词纠错",
			IconName:    "BookOpen",
			Description: "Import words, flip to learn, check to master.",
			Theme:       ThemePresets[0],
			Kind:        KindVocabulary,
		},
		{
			ID:          CategoryAlgorithm,
			Label:       "算法纠错",
			IconName:    "Code",
			Description: "Track coding errors and review snippets.",
			Theme:       ThemePresets[1],
			Kind:        KindAlgorithm,
		},
		{
			ID:          CategoryDaily,
			Label:       "日常事务",
			IconName:    "CheckSquare",
			Description: "Keep your daily habits on track.",
			Theme:       ThemePresets[2],
			Kind:        KindGeneric,
		},
		{
			ID:          CategoryReading,
			Label:       "读书复盘",
			IconName:    "Book",
			Description: "Capture insights from your reading.",
			Theme:       ThemePresets[3],
			Kind:        KindGeneric,
		},
		{
			ID:          CategoryMindset,
			Label:       "思维纠错",
			IconName:    "BrainCircuit",
			Description: "Refine your mental models.",
			Theme:       ThemePresets[4],
			Kind:        KindGeneric,
		},
	}
}
