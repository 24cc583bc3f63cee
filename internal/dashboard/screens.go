package dashboard

import (
	"html/template"
	"regexp"
	"strings"
	"time"

	"github.com/simp-lee/gymadmin/internal/admin"
	"github.com/simp-lee/gymadmin/internal/i18n"
)

var (
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 \-]{6,19}$`)
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

var (
	genders      = []string{"male", "female"}
	kinds        = []string{"blog", "exercise", "meal"}
	difficulties = []string{"beginner", "intermediate", "advanced"}
	muscleGroups = []string{"chest", "back", "legs", "shoulders", "arms", "core", "full_body"}
	mealTypes    = []string{"breakfast", "lunch", "dinner", "snack"}
)

// Option labels of referenced resources.
var (
	byName = func(rec Record, _ string) string { return str(rec, "name") }

	byLocalizedName = func(rec Record, locale string) string {
		if i18n.Normalize(locale) == i18n.Arabic && str(rec, "nameAr") != "" {
			return str(rec, "nameAr")
		}
		return str(rec, "nameEn")
	}

	coachRef        = Ref{Resource: "coaches", Label: byName}
	subscriptionRef = Ref{Resource: "subscriptions", Label: byName}
	categoryRef     = Ref{Resource: "categories", Label: byLocalizedName}
)

// Screens returns every resource screen in navigation order.
func Screens() []*Screen {
	return []*Screen{
		membersScreen(),
		coachesScreen(),
		subscriptionsScreen(),
		categoriesScreen(),
		blogsScreen(),
		exercisesScreen(),
		mealsScreen(),
		staticContentsScreen(),
	}
}

func fullName(rec Record) string {
	return strings.TrimSpace(str(rec, "firstName") + " " + str(rec, "lastName"))
}

func membersScreen() *Screen {
	return &Screen{
		Resource:     "members",
		TitleKey:     "nav.members",
		Title:        "Members",
		Activatable:  true,
		FetchDetails: true,
		Refs:         map[string]Ref{"coachId": coachRef, "subscriptionId": subscriptionRef},
		Columns: func(s Schema) []admin.ColumnSpec[Record] {
			return []admin.ColumnSpec[Record]{
				s.idColumn(),
				{
					ID:       "firstName",
					Header:   s.Label("fullName", "Full name"),
					Accessor: func(r Record) any { return fullName(r) },
					Sortable: true,
				},
				s.textColumn("email", "Email", true),
				s.textColumn("phone", "Phone", false),
				s.optionColumn("gender", "Gender", "gender"),
				s.statusColumn(),
			}
		},
		Filters: func(s Schema) []admin.FilterSpec {
			return []admin.FilterSpec{
				s.selectFilter("gender", "Gender", s.Options("gender", genders...)),
				s.remoteFilter("coachId", "Coach"),
				s.remoteFilter("subscriptionId", "Subscription"),
				s.statusFilter(),
			}
		},
		Form: func(s Schema) [][]admin.FieldSpec {
			first := s.text("firstName", "First name", true)
			first.Rules = admin.Rules{MinLength: 2, MaxLength: 100}
			last := s.text("lastName", "Last name", true)
			last.Rules = admin.Rules{MinLength: 2, MaxLength: 100}
			phone := s.text("phone", "Phone", false)
			phone.Placeholder = "+966 5x xxx xxxx"
			phone.Rules.Pattern = phonePattern
			goal := s.typed("goal", "Goal", admin.FieldTextarea, false)
			goal.Rules.MaxLength = 255
			return [][]admin.FieldSpec{
				{first, last},
				{s.typed("email", "Email", admin.FieldEmail, true), phone},
				{
					s.choice("gender", "Gender", admin.FieldRadio, false, s.Options("gender", genders...)),
					s.typed("birthDate", "Birth date", admin.FieldDate, false),
				},
				{s.remote("coachId", "Coach"), s.remote("subscriptionId", "Subscription")},
				{goal},
				{s.activeSwitch()},
			}
		},
		Validate: func(s Schema) admin.FormValidator {
			return func(values map[string]string) []admin.FormError {
				birth, err := time.Parse(admin.DateLayout, values["birthDate"])
				if err == nil && birth.After(time.Now()) {
					return []admin.FormError{{
						Field:   "birthDate",
						Message: s.Tr("validation.past_date", "Birth date cannot be in the future"),
					}}
				}
				return nil
			}
		},
		Details: func(s Schema) admin.Details[Record] {
			return admin.Details[Record]{
				Title: fullName,
				Tabs: []admin.Tab{
					{ID: "overview", Label: s.Tr("tabs.overview", "Overview")},
					{ID: "training", Label: s.Tr("tabs.training", "Training")},
				},
				Sections: func(r Record) []admin.Section {
					return []admin.Section{
						{
							Title: s.Tr("sections.personal", "Personal information"),
							Tab:   "overview",
							Fields: []admin.DetailField{
								s.field(r, "firstName", "First name"),
								s.field(r, "lastName", "Last name"),
								s.optionField(r, "gender", "Gender", "gender"),
								s.dateField(r, "birthDate", "Birth date"),
							},
						},
						{
							Title: s.Tr("sections.contact", "Contact"),
							Tab:   "overview",
							Fields: []admin.DetailField{
								s.field(r, "email", "Email"),
								{Label: s.Label("phone", "Phone"), Value: orNil(str(r, "phone"))},
							},
						},
						{
							Title: s.Tr("sections.membership", "Membership"),
							Tab:   "training",
							Fields: []admin.DetailField{
								s.field(r, "coachId", "Coach"),
								s.field(r, "subscriptionId", "Subscription"),
								{Label: s.Label("goal", "Goal"), Value: orNil(str(r, "goal"))},
								s.statusField(r),
							},
						},
						s.metaSection(r, "overview"),
					}
				},
			}
		},
	}
}

func coachesScreen() *Screen {
	return &Screen{
		Resource:    "coaches",
		TitleKey:    "nav.coaches",
		Title:       "Coaches",
		Activatable: true,
		Columns: func(s Schema) []admin.ColumnSpec[Record] {
			return []admin.ColumnSpec[Record]{
				s.idColumn(),
				s.textColumn("name", "Name", true),
				s.textColumn("email", "Email", false),
				s.textColumn("specialty", "Specialty", false),
				s.textColumn("experienceYears", "Years of experience", true),
				s.statusColumn(),
			}
		},
		Filters: func(s Schema) []admin.FilterSpec {
			return []admin.FilterSpec{
				{Key: "specialty", Label: s.Label("specialty", "Specialty"), Type: admin.FilterText},
				s.statusFilter(),
			}
		},
		Form: func(s Schema) [][]admin.FieldSpec {
			name := s.text("name", "Name", true)
			name.Rules = admin.Rules{MinLength: 2, MaxLength: 100}
			phone := s.text("phone", "Phone", false)
			phone.Rules.Pattern = phonePattern
			bio := s.typed("bio", "Bio", admin.FieldTextarea, false)
			bio.Rules.MaxLength = 2000
			return [][]admin.FieldSpec{
				{name, s.typed("email", "Email", admin.FieldEmail, true)},
				{phone, s.text("specialty", "Specialty", false)},
				{s.number("experienceYears", "Years of experience", false, admin.Float(0), admin.Float(60))},
				{bio},
				{s.activeSwitch()},
			}
		},
		Details: func(s Schema) admin.Details[Record] {
			return admin.Details[Record]{
				Title: func(r Record) string { return str(r, "name") },
				Sections: func(r Record) []admin.Section {
					return []admin.Section{
						{
							Title: s.Tr("sections.profile", "Profile"),
							Fields: []admin.DetailField{
								s.field(r, "name", "Name"),
								{Label: s.Label("specialty", "Specialty"), Value: orNil(str(r, "specialty"))},
								s.field(r, "experienceYears", "Years of experience"),
								{Label: s.Label("bio", "Bio"), Value: orNil(str(r, "bio"))},
								s.statusField(r),
							},
						},
						{
							Title: s.Tr("sections.contact", "Contact"),
							Fields: []admin.DetailField{
								s.field(r, "email", "Email"),
								{Label: s.Label("phone", "Phone"), Value: orNil(str(r, "phone"))},
							},
						},
						s.metaSection(r, ""),
					}
				},
			}
		},
	}
}

func subscriptionsScreen() *Screen {
	return &Screen{
		Resource:    "subscriptions",
		TitleKey:    "nav.subscriptions",
		Title:       "Subscriptions",
		Activatable: true,
		Columns: func(s Schema) []admin.ColumnSpec[Record] {
			return []admin.ColumnSpec[Record]{
				s.idColumn(),
				s.textColumn("name", "Name", true),
				s.textColumn("price", "Price", true),
				s.textColumn("durationDays", "Duration (days)", true),
				s.statusColumn(),
			}
		},
		Filters: func(s Schema) []admin.FilterSpec {
			return []admin.FilterSpec{
				{Key: "durationDays", Label: s.Label("durationDays", "Duration (days)"), Type: admin.FilterNumber},
				s.statusFilter(),
			}
		},
		Form: func(s Schema) [][]admin.FieldSpec {
			features := s.typed("features", "Features", admin.FieldTextarea, false)
			features.Placeholder = s.Tr("forms.one_per_line", "One per line")
			features.Rules.MaxLength = 2000
			return [][]admin.FieldSpec{
				{s.text("name", "Name", true)},
				{
					s.number("price", "Price", true, admin.Float(0), nil),
					s.number("durationDays", "Duration (days)", true, admin.Float(1), admin.Float(3660)),
				},
				{features},
				{s.activeSwitch()},
			}
		},
		Details: func(s Schema) admin.Details[Record] {
			return admin.Details[Record]{
				Title: func(r Record) string { return str(r, "name") },
				Sections: func(r Record) []admin.Section {
					return []admin.Section{
						{
							Title: s.Tr("sections.plan", "Plan"),
							Fields: []admin.DetailField{
								s.field(r, "name", "Name"),
								s.field(r, "price", "Price"),
								s.field(r, "durationDays", "Duration (days)"),
								{Label: s.Label("features", "Features"), Value: lines(r["features"])},
								s.statusField(r),
							},
						},
						s.metaSection(r, ""),
					}
				},
			}
		},
	}
}

func categoriesScreen() *Screen {
	return &Screen{
		Resource:    "categories",
		TitleKey:    "nav.categories",
		Title:       "Categories",
		Activatable: true,
		Columns: func(s Schema) []admin.ColumnSpec[Record] {
			return []admin.ColumnSpec[Record]{
				s.idColumn(),
				s.textColumn("nameEn", "Name (English)", true),
				s.textColumn("nameAr", "Name (Arabic)", true),
				s.optionColumn("kind", "Kind", "kind"),
				s.statusColumn(),
			}
		},
		Filters: func(s Schema) []admin.FilterSpec {
			return []admin.FilterSpec{
				s.selectFilter("kind", "Kind", s.Options("kind", kinds...)),
				s.statusFilter(),
			}
		},
		Form: func(s Schema) [][]admin.FieldSpec {
			en := s.text("nameEn", "Name (English)", true)
			en.Rules.MaxLength = 100
			ar := s.text("nameAr", "Name (Arabic)", true)
			ar.Rules.MaxLength = 100
			return [][]admin.FieldSpec{
				{en, ar},
				{s.choice("kind", "Kind", admin.FieldSelect, true, s.Options("kind", kinds...))},
				{s.activeSwitch()},
			}
		},
		Details: func(s Schema) admin.Details[Record] {
			return admin.Details[Record]{
				Title: func(r Record) string { return byLocalizedName(r, s.Locale) },
				Sections: func(r Record) []admin.Section {
					return []admin.Section{
						{
							Title: s.Tr("sections.details", "Details"),
							Fields: []admin.DetailField{
								s.field(r, "nameEn", "Name (English)"),
								s.field(r, "nameAr", "Name (Arabic)"),
								s.optionField(r, "kind", "Kind", "kind"),
								s.statusField(r),
							},
						},
						s.metaSection(r, ""),
					}
				},
			}
		},
	}
}

func blogsScreen() *Screen {
	return &Screen{
		Resource:     "blogs",
		TitleKey:     "nav.blogs",
		Title:        "Blogs",
		Activatable:  true,
		FetchDetails: true,
		Refs:         map[string]Ref{"categoryId": categoryRef},
		Columns: func(s Schema) []admin.ColumnSpec[Record] {
			return []admin.ColumnSpec[Record]{
				s.idColumn(),
				s.textColumn("titleEn", "Title (English)", true),
				s.textColumn("author", "Author", false),
				s.dateColumn("publishedAt", "Published at", true),
				s.statusColumn(),
			}
		},
		Filters: func(s Schema) []admin.FilterSpec {
			return []admin.FilterSpec{
				s.remoteFilter("categoryId", "Category"),
				{Key: "author", Label: s.Label("author", "Author"), Type: admin.FilterText},
				s.statusFilter(),
			}
		},
		Form: func(s Schema) [][]admin.FieldSpec {
			en := s.text("titleEn", "Title (English)", true)
			en.Rules.MaxLength = 200
			ar := s.text("titleAr", "Title (Arabic)", true)
			ar.Rules.MaxLength = 200
			return [][]admin.FieldSpec{
				{en, ar},
				{s.text("author", "Author", false), s.remote("categoryId", "Category")},
				{s.typed("publishedAt", "Published at", admin.FieldDate, false)},
				{s.typed("contentEn", "Content (English)", admin.FieldTextarea, false)},
				{s.typed("contentAr", "Content (Arabic)", admin.FieldTextarea, false)},
				{s.activeSwitch()},
			}
		},
		Details: func(s Schema) admin.Details[Record] {
			return bilingualDetails(s, "titleEn", "titleAr", "contentEn", "contentAr", func(r Record) []admin.DetailField {
				return []admin.DetailField{
					{Label: s.Label("author", "Author"), Value: orNil(str(r, "author"))},
					s.field(r, "categoryId", "Category"),
					s.dateField(r, "publishedAt", "Published at"),
					s.statusField(r),
				}
			})
		},
	}
}

func exercisesScreen() *Screen {
	return &Screen{
		Resource:    "exercises",
		TitleKey:    "nav.exercises",
		Title:       "Exercises",
		Activatable: true,
		Refs:        map[string]Ref{"categoryId": categoryRef},
		Columns: func(s Schema) []admin.ColumnSpec[Record] {
			return []admin.ColumnSpec[Record]{
				s.idColumn(),
				s.textColumn("nameEn", "Name (English)", true),
				s.optionColumn("muscleGroup", "Muscle group", "muscle_group"),
				{
					ID:       "difficulty",
					Header:   s.Label("difficulty", "Difficulty"),
					Accessor: func(r Record) any { return str(r, "difficulty") },
					Cell: func(r Record) template.HTML {
						v := str(r, "difficulty")
						if v == "" {
							return ""
						}
						return badge(difficultyColors.GetColor(v), s.OptionLabel("difficulty", v))
					},
					Sortable: true,
				},
				s.textColumn("sets", "Sets", true),
				s.textColumn("reps", "Reps", false),
				s.statusColumn(),
			}
		},
		Filters: func(s Schema) []admin.FilterSpec {
			return []admin.FilterSpec{
				s.selectFilter("muscleGroup", "Muscle group", s.Options("muscle_group", muscleGroups...)),
				s.selectFilter("difficulty", "Difficulty", s.Options("difficulty", difficulties...)),
				s.remoteFilter("categoryId", "Category"),
				s.statusFilter(),
			}
		},
		Form: func(s Schema) [][]admin.FieldSpec {
			video := s.text("videoUrl", "Video URL", false)
			video.Placeholder = "https://"
			video.Rules.MaxLength = 500
			video.Rules.Custom = admin.HTTPURL(admin.Format(
				s.Tr("validation.url", "{label} must be a valid http(s) URL"),
				map[string]string{"label": video.Label}))
			return [][]admin.FieldSpec{
				{s.text("nameEn", "Name (English)", true), s.text("nameAr", "Name (Arabic)", true)},
				{
					s.choice("muscleGroup", "Muscle group", admin.FieldSelect, false, s.Options("muscle_group", muscleGroups...)),
					s.choice("difficulty", "Difficulty", admin.FieldRadio, false, s.Options("difficulty", difficulties...)),
				},
				{
					s.number("sets", "Sets", false, admin.Float(0), admin.Float(20)),
					s.number("reps", "Reps", false, admin.Float(0), admin.Float(100)),
				},
				{video, s.remote("categoryId", "Category")},
				{s.activeSwitch()},
			}
		},
		Details: func(s Schema) admin.Details[Record] {
			return admin.Details[Record]{
				Title: func(r Record) string { return byLocalizedName(r, s.Locale) },
				Tabs: []admin.Tab{
					{ID: "overview", Label: s.Tr("tabs.overview", "Overview")},
					{ID: "training", Label: s.Tr("tabs.training", "Training")},
				},
				Sections: func(r Record) []admin.Section {
					return []admin.Section{
						{
							Title: s.Tr("sections.details", "Details"),
							Tab:   "overview",
							Fields: []admin.DetailField{
								s.field(r, "nameEn", "Name (English)"),
								s.field(r, "nameAr", "Name (Arabic)"),
								s.field(r, "categoryId", "Category"),
								s.statusField(r),
							},
						},
						{
							Title: s.Tr("sections.plan", "Plan"),
							Tab:   "training",
							Fields: []admin.DetailField{
								s.optionField(r, "muscleGroup", "Muscle group", "muscle_group"),
								{
									Label:  s.Label("difficulty", "Difficulty"),
									Value:  orNil(str(r, "difficulty")),
									Colors: difficultyColors,
								},
								s.field(r, "sets", "Sets"),
								s.field(r, "reps", "Reps"),
								{Label: s.Label("videoUrl", "Video URL"), Value: orNil(str(r, "videoUrl")), Render: link},
							},
						},
						s.metaSection(r, "overview"),
					}
				},
			}
		},
	}
}

func mealsScreen() *Screen {
	grams := func(v any) string { return formatValue(v) + " g" }
	return &Screen{
		Resource:    "meals",
		TitleKey:    "nav.meals",
		Title:       "Meals",
		Activatable: true,
		Refs:        map[string]Ref{"categoryId": categoryRef},
		Columns: func(s Schema) []admin.ColumnSpec[Record] {
			return []admin.ColumnSpec[Record]{
				s.idColumn(),
				s.textColumn("nameEn", "Name (English)", true),
				s.optionColumn("mealType", "Meal type", "meal_type"),
				s.textColumn("calories", "Calories", true),
				s.textColumn("protein", "Protein (g)", true),
				s.statusColumn(),
			}
		},
		Filters: func(s Schema) []admin.FilterSpec {
			return []admin.FilterSpec{
				s.selectFilter("mealType", "Meal type", s.Options("meal_type", mealTypes...)),
				s.remoteFilter("categoryId", "Category"),
				s.statusFilter(),
			}
		},
		Form: func(s Schema) [][]admin.FieldSpec {
			return [][]admin.FieldSpec{
				{s.text("nameEn", "Name (English)", true), s.text("nameAr", "Name (Arabic)", true)},
				{
					s.choice("mealType", "Meal type", admin.FieldSelect, false, s.Options("meal_type", mealTypes...)),
					s.remote("categoryId", "Category"),
				},
				{
					s.number("calories", "Calories", false, admin.Float(0), admin.Float(10000)),
					s.number("protein", "Protein (g)", false, admin.Float(0), nil),
				},
				{
					s.number("carbs", "Carbs (g)", false, admin.Float(0), nil),
					s.number("fat", "Fat (g)", false, admin.Float(0), nil),
				},
				{s.activeSwitch()},
			}
		},
		Details: func(s Schema) admin.Details[Record] {
			return admin.Details[Record]{
				Title: func(r Record) string { return byLocalizedName(r, s.Locale) },
				Tabs: []admin.Tab{
					{ID: "overview", Label: s.Tr("tabs.overview", "Overview")},
					{ID: "nutrition", Label: s.Tr("tabs.nutrition", "Nutrition")},
				},
				Sections: func(r Record) []admin.Section {
					return []admin.Section{
						{
							Title: s.Tr("sections.details", "Details"),
							Tab:   "overview",
							Fields: []admin.DetailField{
								s.field(r, "nameEn", "Name (English)"),
								s.field(r, "nameAr", "Name (Arabic)"),
								s.optionField(r, "mealType", "Meal type", "meal_type"),
								s.field(r, "categoryId", "Category"),
								s.statusField(r),
							},
						},
						{
							Title: s.Tr("sections.macros", "Macros"),
							Tab:   "nutrition",
							Fields: []admin.DetailField{
								s.field(r, "calories", "Calories"),
								{Label: s.Label("protein", "Protein (g)"), Value: r["protein"], Format: grams},
								{Label: s.Label("carbs", "Carbs (g)"), Value: r["carbs"], Format: grams},
								{Label: s.Label("fat", "Fat (g)"), Value: r["fat"], Format: grams},
							},
						},
						s.metaSection(r, "overview"),
					}
				},
			}
		},
	}
}

func staticContentsScreen() *Screen {
	return &Screen{
		Resource:     "static-contents",
		TitleKey:     "nav.static_contents",
		Title:        "Static content",
		FetchDetails: true,
		Columns: func(s Schema) []admin.ColumnSpec[Record] {
			return []admin.ColumnSpec[Record]{
				s.idColumn(),
				{
					ID:       "slug",
					Header:   s.Label("slug", "Slug"),
					Accessor: func(r Record) any { return s.OptionLabel("slug", str(r, "slug")) },
					Sortable: true,
				},
				s.textColumn("titleEn", "Title (English)", true),
				s.dateColumn("updatedAt", "Updated at", true),
			}
		},
		Filters: func(s Schema) []admin.FilterSpec {
			return []admin.FilterSpec{
				{Key: "slug", Label: s.Label("slug", "Slug"), Type: admin.FilterText},
			}
		},
		Form: func(s Schema) [][]admin.FieldSpec {
			slug := s.text("slug", "Slug", true)
			slug.Placeholder = "privacy"
			slug.Rules = admin.Rules{Pattern: slugPattern, MaxLength: 50}
			return [][]admin.FieldSpec{
				{slug},
				{s.text("titleEn", "Title (English)", true), s.text("titleAr", "Title (Arabic)", true)},
				{s.typed("bodyEn", "Body (English)", admin.FieldTextarea, false)},
				{s.typed("bodyAr", "Body (Arabic)", admin.FieldTextarea, false)},
			}
		},
		Details: func(s Schema) admin.Details[Record] {
			return bilingualDetails(s, "titleEn", "titleAr", "bodyEn", "bodyAr", func(r Record) []admin.DetailField {
				return []admin.DetailField{s.optionField(r, "slug", "Slug", "slug")}
			})
		},
	}
}

// bilingualDetails lays out a record with English and Arabic text in one tab
// per language plus an overview tab.
func bilingualDetails(s Schema, titleEn, titleAr, bodyEn, bodyAr string, overview func(Record) []admin.DetailField) admin.Details[Record] {
	return admin.Details[Record]{
		Title: func(r Record) string {
			if i18n.Normalize(s.Locale) == i18n.Arabic && str(r, titleAr) != "" {
				return str(r, titleAr)
			}
			return str(r, titleEn)
		},
		Tabs: []admin.Tab{
			{ID: "overview", Label: s.Tr("tabs.overview", "Overview")},
			{ID: "en", Label: s.Tr("tabs.english", "English")},
			{ID: "ar", Label: s.Tr("tabs.arabic", "Arabic")},
		},
		Sections: func(r Record) []admin.Section {
			return []admin.Section{
				{Title: s.Tr("sections.details", "Details"), Tab: "overview", Fields: overview(r)},
				{
					Title: s.Tr("sections.content", "Content"),
					Tab:   "en",
					Fields: []admin.DetailField{
						s.field(r, titleEn, "Title"),
						{Label: s.Label(bodyEn, "Content"), Value: orNil(str(r, bodyEn))},
					},
				},
				{
					Title: s.Tr("sections.content", "Content"),
					Tab:   "ar",
					Fields: []admin.DetailField{
						s.field(r, titleAr, "Title"),
						{Label: s.Label(bodyAr, "Content"), Value: orNil(str(r, bodyAr))},
					},
				},
				s.metaSection(r, "overview"),
			}
		},
	}
}
