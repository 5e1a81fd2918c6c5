package urlform_test

import (
	"time"

	"github.com/google/go-cmp/cmp"
)

// Comparer for MyDate type.
var MyDateComparer = cmp.Comparer(func(x, y MyDate) bool {
	return time.Time(x).Equal(time.Time(y))
})

// Comparer for time.Time fields, comparing instants regardless of location.
var TimeComparer = cmp.Comparer(func(x, y time.Time) bool {
	return x.Equal(y)
})

type Person struct {
	Name     string   `form:"name"`
	Age      int      `form:"age,omitempty"`
	Pronouns []string `form:"pronouns"`
}

type ComplexPerson struct {
	ID        int      `form:"id"`
	Name      string   `form:"name"`
	Age       int      `form:"age,omitempty"`
	Pronouns  []string `form:"pronouns,omitempty"`
	CreatedAt MyDate   `form:"created_at"`
	Private   string   `form:"-"`
	Optional  *string  `form:"optional,omitempty"`
}

type IgnoredFieldsForm struct {
	Public  string `form:"public"`
	Private string `form:"-"`
	Ignored string `form:",ignore"`
	NoTag   string
	Empty   string `form:""`
	Omitted string `form:",omitempty"`
	Complex MyDate `form:"complex,omitempty"`
}

type User struct {
	Name    string  `form:"name"`
	Age     int     `form:"age,omitempty"`
	Address Address `form:"address"`
}

type Address struct {
	Street string `form:"street"`
	City   string `form:"city"`
	State  string `form:"state"`
	Zip    string `form:"zip"`
}

// Event exercises the per-field date tag options alongside plain policy
// driven dates.
type Event struct {
	Name      string    `form:"name"`
	StartsAt  time.Time `form:"starts_at,unix"`
	EndsAt    time.Time `form:"ends_at,iso8601"`
	CreatedOn time.Time `form:"created_on" format:"2006-01-02"`
}

// Article exercises policy driven dates without tag overrides.
type Article struct {
	Title       string    `form:"title"`
	PublishedAt time.Time `form:"published_at"`
}

type SearchFilter struct {
	Query string   `form:"q"`
	Tags  []string `form:"tags"`
}

type MyDate time.Time

func (d MyDate) MarshalForm() (string, error) {
	return time.Time(d).Format("2006.01.02"), nil
}

func (d *MyDate) UnmarshalForm(b string) error {
	t, err := time.Parse("2006.01.02", b)
	if err != nil {
		return err
	}
	*d = MyDate(t)
	return nil
}
