package models

// CategoryID is one of the fixed root categories. The empty id means uncategorized.
type CategoryID string

const (
	CategoryNone          CategoryID = ""
	CategoryIncome        CategoryID = "income"
	CategoryHousing       CategoryID = "housing"
	CategoryUtilities     CategoryID = "utilities"
	CategoryFood          CategoryID = "food"
	CategoryTransport     CategoryID = "transport"
	CategoryTravel        CategoryID = "travel"
	CategoryHealth        CategoryID = "health"
	CategoryShopping      CategoryID = "shopping"
	CategoryDigital       CategoryID = "digital"
	CategoryEntertainment CategoryID = "entertainment"
	CategoryEducation     CategoryID = "education"
	CategoryInvestments   CategoryID = "investments"
	CategorySubscriptions CategoryID = "subscriptions"
	CategoryLoans         CategoryID = "loans"
	CategoryFees          CategoryID = "fees"
	CategoryTransfers     CategoryID = "transfers"
	CategoryBusiness      CategoryID = "business"
	CategoryMisc          CategoryID = "misc"
)

// RootCategory is catalog reference data.
type RootCategory struct {
	ID    CategoryID `json:"id" yaml:"id"`
	Label string     `json:"label" yaml:"label"`
	Icon  string     `json:"icon,omitempty" yaml:"icon,omitempty"`
	Color string     `json:"color,omitempty" yaml:"color,omitempty"`
}

var rootCategories = []RootCategory{
	{ID: CategoryIncome, Label: "Income", Icon: "💰", Color: "#2e7d32"},
	{ID: CategoryHousing, Label: "Housing", Icon: "🏠", Color: "#6d4c41"},
	{ID: CategoryUtilities, Label: "Utilities", Icon: "💡", Color: "#f9a825"},
	{ID: CategoryFood, Label: "Food & Dining", Icon: "🍽", Color: "#e64a19"},
	{ID: CategoryTransport, Label: "Transport", Icon: "🚗", Color: "#1565c0"},
	{ID: CategoryTravel, Label: "Travel", Icon: "✈", Color: "#00838f"},
	{ID: CategoryHealth, Label: "Health", Icon: "🩺", Color: "#c62828"},
	{ID: CategoryShopping, Label: "Shopping", Icon: "🛍", Color: "#ad1457"},
	{ID: CategoryDigital, Label: "Digital Services", Icon: "💻", Color: "#4527a0"},
	{ID: CategoryEntertainment, Label: "Entertainment", Icon: "🎬", Color: "#6a1b9a"},
	{ID: CategoryEducation, Label: "Education", Icon: "🎓", Color: "#283593"},
	{ID: CategoryInvestments, Label: "Investments", Icon: "📈", Color: "#1b5e20"},
	{ID: CategorySubscriptions, Label: "Subscriptions", Icon: "🔁", Color: "#5d4037"},
	{ID: CategoryLoans, Label: "Loans & EMI", Icon: "🏦", Color: "#37474f"},
	{ID: CategoryFees, Label: "Bank Fees", Icon: "🧾", Color: "#757575"},
	{ID: CategoryTransfers, Label: "Transfers", Icon: "🔄", Color: "#0277bd"},
	{ID: CategoryBusiness, Label: "Business", Icon: "💼", Color: "#455a64"},
	{ID: CategoryMisc, Label: "Miscellaneous", Icon: "📦", Color: "#9e9e9e"},
}

// RootCategories returns a copy of the catalog in display order.
func RootCategories() []RootCategory {
	return append([]RootCategory(nil), rootCategories...)
}

// LookupCategory returns the catalog entry for id.
func LookupCategory(id CategoryID) (RootCategory, bool) {
	for _, c := range rootCategories {
		if c.ID == id {
			return c, true
		}
	}
	return RootCategory{}, false
}

// IsValidCategory reports whether id belongs to the catalog.
func IsValidCategory(id CategoryID) bool {
	_, ok := LookupCategory(id)
	return ok
}
