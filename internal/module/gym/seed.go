package gym

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/simp-lee/gymadmin/internal/domain"
)

// defaultPages are the legal pages every installation starts with.
var defaultPages = []domain.StaticContent{
	{Slug: "terms", TitleEn: "Terms and Conditions", TitleAr: "الشروط والأحكام"},
	{Slug: "privacy", TitleEn: "Privacy Policy", TitleAr: "سياسة الخصوصية"},
	{Slug: "about", TitleEn: "About Us", TitleAr: "من نحن"},
}

// SeedStaticContent inserts the default legal pages that do not exist yet.
// Existing pages are left untouched, so it is safe to run on every start.
func SeedStaticContent(ctx context.Context, db *gorm.DB) error {
	for _, page := range defaultPages {
		var existing domain.StaticContent
		err := db.WithContext(ctx).Where("slug = ?", page.Slug).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("look up static page %q: %w", page.Slug, err)
		}
		p := page
		if err := db.WithContext(ctx).Create(&p).Error; err != nil {
			return fmt.Errorf("seed static page %q: %w", page.Slug, err)
		}
		slog.Info("seeded static page", slog.String("slug", page.Slug))
	}
	return nil
}
