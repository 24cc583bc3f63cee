package gym

import (
	"strings"
	"time"

	"github.com/simp-lee/gymadmin/internal/domain"
)

const dateLayout = "2006-01-02"

// MemberPayload is the create/update body for members.
type MemberPayload struct {
	FirstName      string `json:"firstName" form:"firstName" binding:"required,min=2,max=100"`
	LastName       string `json:"lastName" form:"lastName" binding:"required,min=2,max=100"`
	Email          string `json:"email" form:"email" binding:"required,email,max=255"`
	Phone          string `json:"phone" form:"phone" binding:"omitempty,max=30"`
	Gender         string `json:"gender" form:"gender" binding:"omitempty,oneof=male female"`
	BirthDate      string `json:"birthDate" form:"birthDate" binding:"omitempty,datetime=2006-01-02"`
	Goal           string `json:"goal" form:"goal" binding:"omitempty,max=255"`
	CoachID        *uint  `json:"coachId" form:"coachId"`
	SubscriptionID *uint  `json:"subscriptionId" form:"subscriptionId"`
	IsActive       *bool  `json:"isActive" form:"isActive"`
}

// Apply copies the payload onto m.
func (p *MemberPayload) Apply(m *domain.Member) error {
	birth, err := parseDate(p.BirthDate)
	if err != nil {
		return err
	}
	m.FirstName = strings.TrimSpace(p.FirstName)
	m.LastName = strings.TrimSpace(p.LastName)
	m.Email = strings.ToLower(strings.TrimSpace(p.Email))
	m.Phone = strings.TrimSpace(p.Phone)
	m.Gender = p.Gender
	m.BirthDate = birth
	m.Goal = strings.TrimSpace(p.Goal)
	m.CoachID = nonZero(p.CoachID)
	m.SubscriptionID = nonZero(p.SubscriptionID)
	m.IsActive = activeOrDefault(p.IsActive)
	return nil
}

// CoachPayload is the create/update body for coaches.
type CoachPayload struct {
	Name            string `json:"name" form:"name" binding:"required,min=2,max=100"`
	Email           string `json:"email" form:"email" binding:"required,email,max=255"`
	Phone           string `json:"phone" form:"phone" binding:"omitempty,max=30"`
	Specialty       string `json:"specialty" form:"specialty" binding:"omitempty,max=100"`
	Bio             string `json:"bio" form:"bio" binding:"omitempty,max=2000"`
	ExperienceYears int    `json:"experienceYears" form:"experienceYears" binding:"gte=0,lte=60"`
	IsActive        *bool  `json:"isActive" form:"isActive"`
}

// Apply copies the payload onto c.
func (p *CoachPayload) Apply(c *domain.Coach) error {
	c.Name = strings.TrimSpace(p.Name)
	c.Email = strings.ToLower(strings.TrimSpace(p.Email))
	c.Phone = strings.TrimSpace(p.Phone)
	c.Specialty = strings.TrimSpace(p.Specialty)
	c.Bio = strings.TrimSpace(p.Bio)
	c.ExperienceYears = p.ExperienceYears
	c.IsActive = activeOrDefault(p.IsActive)
	return nil
}

// CategoryPayload is the create/update body for categories.
type CategoryPayload struct {
	NameEn   string `json:"nameEn" form:"nameEn" binding:"required,max=100"`
	NameAr   string `json:"nameAr" form:"nameAr" binding:"required,max=100"`
	Kind     string `json:"kind" form:"kind" binding:"required,oneof=blog exercise meal"`
	IsActive *bool  `json:"isActive" form:"isActive"`
}

// Apply copies the payload onto c.
func (p *CategoryPayload) Apply(c *domain.Category) error {
	c.NameEn = strings.TrimSpace(p.NameEn)
	c.NameAr = strings.TrimSpace(p.NameAr)
	c.Kind = p.Kind
	c.IsActive = activeOrDefault(p.IsActive)
	return nil
}

// BlogPayload is the create/update body for blogs.
type BlogPayload struct {
	TitleEn     string `json:"titleEn" form:"titleEn" binding:"required,max=200"`
	TitleAr     string `json:"titleAr" form:"titleAr" binding:"required,max=200"`
	ContentEn   string `json:"contentEn" form:"contentEn"`
	ContentAr   string `json:"contentAr" form:"contentAr"`
	Author      string `json:"author" form:"author" binding:"omitempty,max=100"`
	CategoryID  *uint  `json:"categoryId" form:"categoryId"`
	PublishedAt string `json:"publishedAt" form:"publishedAt" binding:"omitempty,datetime=2006-01-02"`
	IsActive    *bool  `json:"isActive" form:"isActive"`
}

// Apply copies the payload onto b.
func (p *BlogPayload) Apply(b *domain.Blog) error {
	published, err := parseDate(p.PublishedAt)
	if err != nil {
		return err
	}
	b.TitleEn = strings.TrimSpace(p.TitleEn)
	b.TitleAr = strings.TrimSpace(p.TitleAr)
	b.ContentEn = p.ContentEn
	b.ContentAr = p.ContentAr
	b.Author = strings.TrimSpace(p.Author)
	b.CategoryID = nonZero(p.CategoryID)
	b.PublishedAt = published
	b.IsActive = activeOrDefault(p.IsActive)
	return nil
}

// ExercisePayload is the create/update body for exercises.
type ExercisePayload struct {
	NameEn      string `json:"nameEn" form:"nameEn" binding:"required,max=150"`
	NameAr      string `json:"nameAr" form:"nameAr" binding:"required,max=150"`
	MuscleGroup string `json:"muscleGroup" form:"muscleGroup" binding:"omitempty,oneof=chest back legs shoulders arms core full_body"`
	Difficulty  string `json:"difficulty" form:"difficulty" binding:"omitempty,oneof=beginner intermediate advanced"`
	VideoURL    string `json:"videoUrl" form:"videoUrl" binding:"omitempty,url,max=500"`
	Sets        int    `json:"sets" form:"sets" binding:"gte=0,lte=20"`
	Reps        int    `json:"reps" form:"reps" binding:"gte=0,lte=100"`
	CategoryID  *uint  `json:"categoryId" form:"categoryId"`
	IsActive    *bool  `json:"isActive" form:"isActive"`
}

// Apply copies the payload onto e.
func (p *ExercisePayload) Apply(e *domain.Exercise) error {
	e.NameEn = strings.TrimSpace(p.NameEn)
	e.NameAr = strings.TrimSpace(p.NameAr)
	e.MuscleGroup = p.MuscleGroup
	e.Difficulty = p.Difficulty
	e.VideoURL = strings.TrimSpace(p.VideoURL)
	e.Sets = p.Sets
	e.Reps = p.Reps
	e.CategoryID = nonZero(p.CategoryID)
	e.IsActive = activeOrDefault(p.IsActive)
	return nil
}

// MealPayload is the create/update body for meals.
type MealPayload struct {
	NameEn     string  `json:"nameEn" form:"nameEn" binding:"required,max=150"`
	NameAr     string  `json:"nameAr" form:"nameAr" binding:"required,max=150"`
	MealType   string  `json:"mealType" form:"mealType" binding:"omitempty,oneof=breakfast lunch dinner snack"`
	Calories   int     `json:"calories" form:"calories" binding:"gte=0,lte=10000"`
	Protein    float64 `json:"protein" form:"protein" binding:"gte=0"`
	Carbs      float64 `json:"carbs" form:"carbs" binding:"gte=0"`
	Fat        float64 `json:"fat" form:"fat" binding:"gte=0"`
	CategoryID *uint   `json:"categoryId" form:"categoryId"`
	IsActive   *bool   `json:"isActive" form:"isActive"`
}

// Apply copies the payload onto m.
func (p *MealPayload) Apply(m *domain.Meal) error {
	m.NameEn = strings.TrimSpace(p.NameEn)
	m.NameAr = strings.TrimSpace(p.NameAr)
	m.MealType = p.MealType
	m.Calories = p.Calories
	m.Protein = p.Protein
	m.Carbs = p.Carbs
	m.Fat = p.Fat
	m.CategoryID = nonZero(p.CategoryID)
	m.IsActive = activeOrDefault(p.IsActive)
	return nil
}

// SubscriptionPayload is the create/update body for subscriptions.
type SubscriptionPayload struct {
	Name         string  `json:"name" form:"name" binding:"required,max=100"`
	Price        float64 `json:"price" form:"price" binding:"gte=0"`
	DurationDays int     `json:"durationDays" form:"durationDays" binding:"required,gte=1,lte=3660"`
	Features     string  `json:"features" form:"features" binding:"omitempty,max=2000"`
	IsActive     *bool   `json:"isActive" form:"isActive"`
}

// Apply copies the payload onto s.
func (p *SubscriptionPayload) Apply(s *domain.Subscription) error {
	s.Name = strings.TrimSpace(p.Name)
	s.Price = p.Price
	s.DurationDays = p.DurationDays
	s.Features = strings.TrimSpace(p.Features)
	s.IsActive = activeOrDefault(p.IsActive)
	return nil
}

// StaticContentPayload is the create/update body for static pages.
type StaticContentPayload struct {
	Slug    string `json:"slug" form:"slug" binding:"required,max=50"`
	TitleEn string `json:"titleEn" form:"titleEn" binding:"required,max=200"`
	TitleAr string `json:"titleAr" form:"titleAr" binding:"required,max=200"`
	BodyEn  string `json:"bodyEn" form:"bodyEn"`
	BodyAr  string `json:"bodyAr" form:"bodyAr"`
}

// Apply copies the payload onto s.
func (p *StaticContentPayload) Apply(s *domain.StaticContent) error {
	slug := strings.ToLower(strings.TrimSpace(p.Slug))
	if !slugPattern.MatchString(slug) {
		return domain.NewAppError(domain.CodeValidation, "slug may only contain lowercase letters, digits and dashes", nil)
	}
	s.Slug = slug
	s.TitleEn = strings.TrimSpace(p.TitleEn)
	s.TitleAr = strings.TrimSpace(p.TitleAr)
	s.BodyEn = p.BodyEn
	s.BodyAr = p.BodyAr
	return nil
}

func parseDate(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeValidation, "dates must use the YYYY-MM-DD format", err)
	}
	return &t, nil
}

// nonZero treats a zero foreign key as "not set".
func nonZero(id *uint) *uint {
	if id == nil || *id == 0 {
		return nil
	}
	return id
}

// activeOrDefault makes new records active unless the payload says otherwise.
func activeOrDefault(v *bool) bool {
	return v == nil || *v
}
