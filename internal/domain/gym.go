package domain

import "time"

// Category kinds. A category groups blogs, exercises, or meals.
const (
	CategoryBlog     = "blog"
	CategoryExercise = "exercise"
	CategoryMeal     = "meal"
)

// Member is a gym customer.
type Member struct {
	BaseModel
	FirstName      string     `gorm:"size:100;not null" json:"firstName"`
	LastName       string     `gorm:"size:100;not null" json:"lastName"`
	Email          string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Phone          string     `gorm:"size:30" json:"phone"`
	Gender         string     `gorm:"size:10" json:"gender"`
	BirthDate      *time.Time `json:"birthDate"`
	Goal           string     `gorm:"size:255" json:"goal"`
	CoachID        *uint      `gorm:"index" json:"coachId"`
	SubscriptionID *uint      `gorm:"index" json:"subscriptionId"`
	IsActive       bool       `gorm:"not null" json:"isActive"`
}

// Coach is a trainer that members can be assigned to.
type Coach struct {
	BaseModel
	Name            string `gorm:"size:100;not null" json:"name"`
	Email           string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Phone           string `gorm:"size:30" json:"phone"`
	Specialty       string `gorm:"size:100" json:"specialty"`
	Bio             string `gorm:"type:text" json:"bio"`
	ExperienceYears int    `json:"experienceYears"`
	IsActive        bool   `gorm:"not null" json:"isActive"`
}

// Category groups content of a single kind.
type Category struct {
	BaseModel
	NameEn   string `gorm:"size:100;not null" json:"nameEn"`
	NameAr   string `gorm:"size:100;not null" json:"nameAr"`
	Kind     string `gorm:"size:20;index;not null" json:"kind"`
	IsActive bool   `gorm:"not null" json:"isActive"`
}

// Blog is a bilingual article shown in the member app.
type Blog struct {
	BaseModel
	TitleEn     string     `gorm:"size:200;not null" json:"titleEn"`
	TitleAr     string     `gorm:"size:200;not null" json:"titleAr"`
	ContentEn   string     `gorm:"type:text" json:"contentEn"`
	ContentAr   string     `gorm:"type:text" json:"contentAr"`
	Author      string     `gorm:"size:100" json:"author"`
	CategoryID  *uint      `gorm:"index" json:"categoryId"`
	PublishedAt *time.Time `json:"publishedAt"`
	IsActive    bool       `gorm:"not null" json:"isActive"`
}

// Exercise is a workout movement with its default prescription.
type Exercise struct {
	BaseModel
	NameEn      string `gorm:"size:150;not null" json:"nameEn"`
	NameAr      string `gorm:"size:150;not null" json:"nameAr"`
	MuscleGroup string `gorm:"size:50;index" json:"muscleGroup"`
	Difficulty  string `gorm:"size:20;index" json:"difficulty"`
	VideoURL    string `gorm:"size:500" json:"videoUrl"`
	Sets        int    `json:"sets"`
	Reps        int    `json:"reps"`
	CategoryID  *uint  `gorm:"index" json:"categoryId"`
	IsActive    bool   `gorm:"not null" json:"isActive"`
}

// Meal is a nutrition plan entry with its macros.
type Meal struct {
	BaseModel
	NameEn     string  `gorm:"size:150;not null" json:"nameEn"`
	NameAr     string  `gorm:"size:150;not null" json:"nameAr"`
	MealType   string  `gorm:"size:20;index" json:"mealType"`
	Calories   int     `json:"calories"`
	Protein    float64 `json:"protein"`
	Carbs      float64 `json:"carbs"`
	Fat        float64 `json:"fat"`
	CategoryID *uint   `gorm:"index" json:"categoryId"`
	IsActive   bool    `gorm:"not null" json:"isActive"`
}

// Subscription is a membership plan.
type Subscription struct {
	BaseModel
	Name         string  `gorm:"size:100;not null" json:"name"`
	Price        float64 `gorm:"not null" json:"price"`
	DurationDays int     `gorm:"not null" json:"durationDays"`
	Features     string  `gorm:"type:text" json:"features"`
	IsActive     bool    `gorm:"not null" json:"isActive"`
}

// StaticContent is a bilingual legal or informational page such as the
// terms of service or privacy policy.
type StaticContent struct {
	BaseModel
	Slug    string `gorm:"size:50;uniqueIndex;not null" json:"slug"`
	TitleEn string `gorm:"size:200;not null" json:"titleEn"`
	TitleAr string `gorm:"size:200;not null" json:"titleAr"`
	BodyEn  string `gorm:"type:text" json:"bodyEn"`
	BodyAr  string `gorm:"type:text" json:"bodyAr"`
}

// Models lists every persisted model, in migration order.
func Models() []any {
	return []any{
		&User{},
		&Category{},
		&Coach{},
		&Subscription{},
		&Member{},
		&Blog{},
		&Exercise{},
		&Meal{},
		&StaticContent{},
	}
}
