// Package testutil provides fixtures and in-memory fakes shared by the
// package tests.
package testutil

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"worklink/internal/models"
)

// RandomIdentity returns a plausible profile row.
func RandomIdentity() models.Identity {
	return models.Identity{
		ID:         uuid.NewString(),
		Name:       gofakeit.Name(),
		Email:      gofakeit.Email(),
		AvatarURL:  gofakeit.URL(),
		Department: gofakeit.RandomString([]string{"sales", "engineering", "design", "operations"}),
		Position:   gofakeit.JobTitle(),
		Skills:     []string{gofakeit.HackerVerb(), gofakeit.HackerVerb()},
		Interests:  []string{gofakeit.Hobby()},
		Role:       models.RoleUser,
		JoinedAt:   gofakeit.DateRange(time.Now().AddDate(-3, 0, 0), time.Now()),
	}
}

// RandomPost returns a post by author.
func RandomPost(authorID string) models.Post {
	return models.Post{
		ID:          uuid.NewString(),
		AuthorID:    authorID,
		Content:     gofakeit.Sentence(12),
		LikeUserIDs: []string{},
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
}

// RandomMessage returns a direct message between two users.
func RandomMessage(senderID, receiverID string) models.Message {
	return models.Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: &receiverID,
		Content:    gofakeit.Sentence(8),
		CreatedAt:  time.Now().UTC(),
	}
}

// RandomReport returns a daily report for owner on date.
func RandomReport(ownerID, date string) models.DailyReport {
	return models.DailyReport{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		Date:         date,
		SiteWork:     []string{gofakeit.Sentence(4)},
		Delivery:     []string{},
		Meeting:      []string{gofakeit.Sentence(4)},
		Production:   []string{},
		Estimate:     []string{},
		TomorrowPlan: []string{gofakeit.Sentence(4)},
		FuturePlan:   []string{},
		TodayComment: gofakeit.Sentence(6),
	}
}

// RandomProperty returns a property spanning days calendar days starting
// at start.
func RandomProperty(start time.Time, days int) models.Property {
	location := gofakeit.RandomString([]string{models.LocationTokyo, models.LocationOsaka})
	return models.Property{
		ID:        uuid.NewString(),
		Title:     fmt.Sprintf("%s %s", gofakeit.City(), gofakeit.NounAbstract()),
		StartDate: start.Format("2006-01-02"),
		EndDate:   start.AddDate(0, 0, days-1).Format("2006-01-02"),
		Location:  location,
		Customer:  gofakeit.Company(),
		Manager:   gofakeit.Name(),
		Color:     models.ColorForLocation(location),
		CreatorID: uuid.NewString(),
	}
}

// RandomAttachment returns an attachment row owned by a post.
func RandomAttachment(postID string) models.Attachment {
	name := gofakeit.Word() + ".pdf"
	return models.Attachment{
		ID:         uuid.NewString(),
		FileName:   name,
		FileURL:    gofakeit.URL(),
		FileType:   "application/pdf",
		Category:   models.CategoryPDF,
		FileSize:   int64(gofakeit.Number(1024, 10<<20)),
		Source:     models.PostSource(postID),
		UploadedBy: uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
	}
}
