package backendtest

import (
	"fmt"

	"libranexus/internal/catalog"
	"libranexus/internal/membership"
)

// SeedPassword is the password of every seeded account.
const SeedPassword = "library123"

// Accounts are the users Seed creates.
type Accounts struct {
	Admin    membership.User
	Student  membership.User
	Lecturer membership.User
}

// Seed fills s with one account per role and a small catalogue. The last
// book has no copies left.
func (s *Server) Seed() (Accounts, error) {
	var acc Accounts
	users := []struct {
		dst *membership.User
		u   membership.User
	}{
		{&acc.Admin, membership.User{Email: "admin@libranexus.test", Name: "Library Admin", Role: membership.RoleAdmin, Phone: "0811000001"}},
		{&acc.Student, membership.User{Email: "student@libranexus.test", Name: "Sari Student", Role: membership.RoleStudent, Phone: "0811000002", NIM: "2201001", Year: "2022"}},
		{&acc.Lecturer, membership.User{Email: "lecturer@libranexus.test", Name: "Dr. Lukas Lecturer", Role: membership.RoleLecturer, Phone: "0811000003", NIP: "19800101"}},
	}
	for _, x := range users {
		created, err := s.AddUser(x.u, SeedPassword)
		if err != nil {
			return Accounts{}, fmt.Errorf("seed %s: %w", x.u.Email, err)
		}
		*x.dst = created
	}

	for _, in := range []catalog.BookInput{
		{Title: "The Go Programming Language", Author: "Alan Donovan", Category: "Programming", Year: 2015, ISBN: "9780134190440", Language: "English", Quota: 3, AvailableCopies: 3, CanBorrow: true, RackNumber: "A-01", LateFee: 2000, Rating: 4.8},
		{Title: "Designing Data-Intensive Applications", Author: "Martin Kleppmann", Category: "Databases", Year: 2017, ISBN: "9781449373320", Language: "English", Quota: 2, AvailableCopies: 2, CanBorrow: true, RackNumber: "B-04", LateFee: 2000, Rating: 4.9},
		{Title: "Laskar Pelangi", Author: "Andrea Hirata", Category: "Fiction", Year: 2005, ISBN: "9789793062792", Language: "Indonesian", Quota: 4, AvailableCopies: 4, CanBorrow: true, RackNumber: "F-12", LateFee: 1000, Rating: 4.5},
		{Title: "Structure and Interpretation of Computer Programs", Author: "Harold Abelson", Category: "Programming", Year: 1996, ISBN: "9780262510875", Language: "English", Quota: 1, AvailableCopies: 0, CanBorrow: true, RackNumber: "A-07", LateFee: 2000, Rating: 4.7},
	} {
		s.AddBook(in)
	}
	return acc, nil
}
