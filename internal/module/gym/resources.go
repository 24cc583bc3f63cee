// Package gym defines the REST resources of the gym back-office on top of
// the generic resource package.
package gym

import (
	"regexp"

	"gorm.io/gorm"

	"github.com/simp-lee/gymadmin/internal/domain"
	"github.com/simp-lee/gymadmin/internal/module/resource"
)

// Resource names, used as URL segments under /api/v1 and /dashboard.
const (
	Members        = "members"
	Coaches        = "coaches"
	Blogs          = "blogs"
	Categories     = "categories"
	Exercises      = "exercises"
	Meals          = "meals"
	Subscriptions  = "subscriptions"
	StaticContents = "static-contents"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// common JSON-name to column mappings shared by every resource.
var baseSort = map[string]string{
	"id":        "id",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

func withBase(m map[string]string) map[string]string {
	out := make(map[string]string, len(m)+len(baseSort))
	for k, v := range baseSort {
		out[k] = v
	}
	for k, v := range m {
		out[k] = v
	}
	return out
}

func memberDefinition() resource.Definition[domain.Member] {
	return resource.Definition[domain.Member]{
		Name: Members,
		Query: resource.Query{
			SortColumns: withBase(map[string]string{
				"firstName": "first_name", "lastName": "last_name", "email": "email", "birthDate": "birth_date",
			}),
			FilterColumns: map[string]string{
				"gender": "gender", "coachId": "coach_id", "subscriptionId": "subscription_id",
				"isActive": "is_active", "email": "email",
			},
			SearchColumns: []string{"first_name", "last_name", "email", "phone"},
		},
		NewPayload:  func() resource.Payload[domain.Member] { return &MemberPayload{} },
		Activatable: true,
	}
}

func coachDefinition() resource.Definition[domain.Coach] {
	return resource.Definition[domain.Coach]{
		Name: Coaches,
		Query: resource.Query{
			SortColumns:   withBase(map[string]string{"name": "name", "experienceYears": "experience_years"}),
			FilterColumns: map[string]string{"specialty": "specialty", "isActive": "is_active"},
			SearchColumns: []string{"name", "email", "specialty"},
		},
		NewPayload:  func() resource.Payload[domain.Coach] { return &CoachPayload{} },
		Activatable: true,
	}
}

func categoryDefinition() resource.Definition[domain.Category] {
	return resource.Definition[domain.Category]{
		Name: Categories,
		Query: resource.Query{
			SortColumns:   withBase(map[string]string{"nameEn": "name_en", "nameAr": "name_ar", "kind": "kind"}),
			FilterColumns: map[string]string{"kind": "kind", "isActive": "is_active"},
			SearchColumns: []string{"name_en", "name_ar"},
		},
		NewPayload:  func() resource.Payload[domain.Category] { return &CategoryPayload{} },
		Activatable: true,
	}
}

func blogDefinition() resource.Definition[domain.Blog] {
	return resource.Definition[domain.Blog]{
		Name: Blogs,
		Query: resource.Query{
			SortColumns:   withBase(map[string]string{"titleEn": "title_en", "publishedAt": "published_at"}),
			FilterColumns: map[string]string{"categoryId": "category_id", "author": "author", "isActive": "is_active"},
			SearchColumns: []string{"title_en", "title_ar", "author"},
		},
		NewPayload:  func() resource.Payload[domain.Blog] { return &BlogPayload{} },
		Activatable: true,
	}
}

func exerciseDefinition() resource.Definition[domain.Exercise] {
	return resource.Definition[domain.Exercise]{
		Name: Exercises,
		Query: resource.Query{
			SortColumns: withBase(map[string]string{"nameEn": "name_en", "difficulty": "difficulty", "sets": "sets"}),
			FilterColumns: map[string]string{
				"muscleGroup": "muscle_group", "difficulty": "difficulty",
				"categoryId": "category_id", "isActive": "is_active",
			},
			SearchColumns: []string{"name_en", "name_ar"},
		},
		NewPayload:  func() resource.Payload[domain.Exercise] { return &ExercisePayload{} },
		Activatable: true,
	}
}

func mealDefinition() resource.Definition[domain.Meal] {
	return resource.Definition[domain.Meal]{
		Name: Meals,
		Query: resource.Query{
			SortColumns: withBase(map[string]string{"nameEn": "name_en", "calories": "calories", "protein": "protein"}),
			FilterColumns: map[string]string{
				"mealType": "meal_type", "categoryId": "category_id", "isActive": "is_active",
			},
			SearchColumns: []string{"name_en", "name_ar"},
		},
		NewPayload:  func() resource.Payload[domain.Meal] { return &MealPayload{} },
		Activatable: true,
	}
}

func subscriptionDefinition() resource.Definition[domain.Subscription] {
	return resource.Definition[domain.Subscription]{
		Name: Subscriptions,
		Query: resource.Query{
			SortColumns:   withBase(map[string]string{"name": "name", "price": "price", "durationDays": "duration_days"}),
			FilterColumns: map[string]string{"durationDays": "duration_days", "isActive": "is_active"},
			SearchColumns: []string{"name", "features"},
		},
		NewPayload:  func() resource.Payload[domain.Subscription] { return &SubscriptionPayload{} },
		Activatable: true,
	}
}

func staticContentDefinition() resource.Definition[domain.StaticContent] {
	return resource.Definition[domain.StaticContent]{
		Name: StaticContents,
		Query: resource.Query{
			SortColumns:   withBase(map[string]string{"slug": "slug", "titleEn": "title_en"}),
			FilterColumns: map[string]string{"slug": "slug"},
			SearchColumns: []string{"slug", "title_en", "title_ar"},
		},
		NewPayload: func() resource.Payload[domain.StaticContent] { return &StaticContentPayload{} },
	}
}

// Services groups the per-resource services so other modules (dashboard
// home totals, seeding) can reach them without going through HTTP.
type Services struct {
	Members        *resource.Service[domain.Member]
	Coaches        *resource.Service[domain.Coach]
	Categories     *resource.Service[domain.Category]
	Blogs          *resource.Service[domain.Blog]
	Exercises      *resource.Service[domain.Exercise]
	Meals          *resource.Service[domain.Meal]
	Subscriptions  *resource.Service[domain.Subscription]
	StaticContents *resource.Service[domain.StaticContent]
}

// NewModule builds the gym resources over db and returns the route module
// along with the underlying services.
func NewModule(db *gorm.DB) (*resource.Module, *Services) {
	members := resource.NewHandler(memberDefinition(), resource.NewService[domain.Member](db, memberDefinition().Query))
	coaches := resource.NewHandler(coachDefinition(), resource.NewService[domain.Coach](db, coachDefinition().Query))
	categories := resource.NewHandler(categoryDefinition(), resource.NewService[domain.Category](db, categoryDefinition().Query))
	blogs := resource.NewHandler(blogDefinition(), resource.NewService[domain.Blog](db, blogDefinition().Query))
	exercises := resource.NewHandler(exerciseDefinition(), resource.NewService[domain.Exercise](db, exerciseDefinition().Query))
	meals := resource.NewHandler(mealDefinition(), resource.NewService[domain.Meal](db, mealDefinition().Query))
	subscriptions := resource.NewHandler(subscriptionDefinition(), resource.NewService[domain.Subscription](db, subscriptionDefinition().Query))
	statics := resource.NewHandler(staticContentDefinition(), resource.NewService[domain.StaticContent](db, staticContentDefinition().Query))

	svcs := &Services{
		Members:        members.Service(),
		Coaches:        coaches.Service(),
		Categories:     categories.Service(),
		Blogs:          blogs.Service(),
		Exercises:      exercises.Service(),
		Meals:          meals.Service(),
		Subscriptions:  subscriptions.Service(),
		StaticContents: statics.Service(),
	}
	mod := resource.NewModule(members, coaches, blogs, categories, exercises, meals, subscriptions, statics)
	return mod, svcs
}
