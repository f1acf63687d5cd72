package catalog

import (
	"context"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SlideRepo struct{ DB *pgxpool.Pool }

func (r *SlideRepo) List(ctx context.Context) ([]Slide, error) {
	rows, err := postgres.Conn(ctx, r.DB).Query(ctx,
		`SELECT id, url, storage_key, link, created_at FROM hero_slider_images ORDER BY created_at, id`)
	if err != nil {
		return nil, postgres.Translate(err, "hero slider image")
	}
	defer rows.Close()
	out := []Slide{}
	for rows.Next() {
		var s Slide
		if err := rows.Scan(&s.ID, &s.URL, &s.Key, &s.Link, &s.CreatedAt); err != nil {
			return nil, postgres.Translate(err, "hero slider image")
		}
		out = append(out, s)
	}
	return out, postgres.Translate(rows.Err(), "hero slider image")
}

func (r *SlideRepo) Add(ctx context.Context, slides []Slide) error {
	db := postgres.Conn(ctx, r.DB)
	for i := range slides {
		err := db.QueryRow(ctx, `
			INSERT INTO hero_slider_images(id, url, storage_key, link) VALUES ($1,$2,$3,$4)
			RETURNING created_at`, slides[i].ID, slides[i].URL, slides[i].Key, slides[i].Link,
		).Scan(&slides[i].CreatedAt)
		if err != nil {
			return postgres.Translate(err, "hero slider image")
		}
	}
	return nil
}

func (r *SlideRepo) Delete(ctx context.Context, id uuid.UUID) (*Slide, error) {
	var s Slide
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx, `
		DELETE FROM hero_slider_images WHERE id=$1
		RETURNING id, url, storage_key, link, created_at`, id,
	).Scan(&s.ID, &s.URL, &s.Key, &s.Link, &s.CreatedAt)
	if err != nil {
		return nil, postgres.Translate(err, "hero slider image")
	}
	return &s, nil
}
