package banners

import "vitrine/internal/domain/crud"

// Banner is a storefront hero image with separate desktop and mobile artwork.
type Banner struct {
	crud.Model
	Title             string  `gorm:"size:255;not null" json:"title"`
	Subtitle          string  `gorm:"size:255" json:"subtitle"`
	LinkURL           *string `gorm:"size:512" json:"linkUrl"`
	ResolutionDesktop string  `gorm:"size:32" json:"resolutionDesktop"`
	ResolutionMobile  string  `gorm:"size:32" json:"resolutionMobile"`
	ImageDesktop      *string `gorm:"size:512" json:"imageDesktop"`
	ImageMobile       *string `gorm:"size:512" json:"imageMobile"`
	IsActive          bool    `gorm:"not null;index" json:"isActive"`
}

// Images returns the stored paths of the banner artwork.
func (b *Banner) Images() []string {
	var paths []string
	for _, p := range []*string{b.ImageDesktop, b.ImageMobile} {
		if p != nil && *p != "" {
			paths = append(paths, *p)
		}
	}
	return paths
}
