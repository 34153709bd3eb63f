package demo

import (
	"fmt"
	"math"
	"math/rand"
)

type Student struct {
	ID           int64  `parquet:"id"`
	Name         string `parquet:"name"`
	Cohort       string `parquet:"cohort"`
	EnrolledYear int64  `parquet:"enrolled_year"`
}

type Course struct {
	ID         int64  `parquet:"id"`
	Title      string `parquet:"title"`
	Department string `parquet:"department"`
	Credits    int64  `parquet:"credits"`
}

type Grade struct {
	StudentID int64   `parquet:"student_id"`
	CourseID  int64   `parquet:"course_id"`
	Term      string  `parquet:"term"`
	Score     float64 `parquet:"score"`
}

// Dataset is a small school: students, the course catalog and one grade per
// enrollment.
type Dataset struct {
	Students []Student
	Courses  []Course
	Grades   []Grade
}

var courseCatalog = []Course{
	{ID: 1, Title: "Calculus I", Department: "Mathematics", Credits: 5},
	{ID: 2, Title: "Linear Algebra", Department: "Mathematics", Credits: 4},
	{ID: 3, Title: "Intro to Programming", Department: "Computer Science", Credits: 6},
	{ID: 4, Title: "Databases", Department: "Computer Science", Credits: 5},
	{ID: 5, Title: "Academic Writing", Department: "Humanities", Credits: 3},
	{ID: 6, Title: "Statistics", Department: "Mathematics", Credits: 4},
	{ID: 7, Title: "Physics I", Department: "Physics", Credits: 5},
}

var (
	firstNames = []string{"Alice", "Bruno", "Chen", "Dana", "Emil", "Fatima", "Gustav", "Hana", "Ivan", "Jun", "Kofi", "Lena", "Mateo", "Nora"}
	lastNames  = []string{"Berg", "Costa", "Duarte", "Eriksen", "Fischer", "Garcia", "Haddad", "Ito", "Jansen", "Kowalski", "Larsen", "Moreau"}
	cohorts    = []string{"A", "B", "C"}
	terms      = []string{"2024-fall", "2025-spring", "2025-fall"}
)

type Generator struct {
	rnd *rand.Rand
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Generate builds a dataset with the given number of students, each enrolled
// in coursesPerStudent distinct courses.
func (g *Generator) Generate(students, coursesPerStudent int) Dataset {
	if coursesPerStudent > len(courseCatalog) {
		coursesPerStudent = len(courseCatalog)
	}
	data := Dataset{
		Students: make([]Student, 0, students),
		Courses:  append([]Course(nil), courseCatalog...),
		Grades:   make([]Grade, 0, students*coursesPerStudent),
	}
	for i := 1; i <= students; i++ {
		student := Student{
			ID:           int64(i),
			Name:         fmt.Sprintf("%s %s", pickOne(g.rnd, firstNames), pickOne(g.rnd, lastNames)),
			Cohort:       pickOne(g.rnd, cohorts),
			EnrolledYear: int64(2021 + g.rnd.Intn(5)),
		}
		data.Students = append(data.Students, student)

		ability := 55 + g.rnd.Float64()*30
		for _, idx := range g.rnd.Perm(len(courseCatalog))[:coursesPerStudent] {
			data.Grades = append(data.Grades, Grade{
				StudentID: student.ID,
				CourseID:  courseCatalog[idx].ID,
				Term:      pickOne(g.rnd, terms),
				Score:     g.score(ability),
			})
		}
	}
	return data
}

func (g *Generator) score(ability float64) float64 {
	v := ability + g.rnd.NormFloat64()*8
	return round2(math.Max(0, math.Min(100, v)))
}

func pickOne(rnd *rand.Rand, values []string) string {
	return values[rnd.Intn(len(values))]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
