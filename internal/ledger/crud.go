package ledger

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"krypto_store/internal/models"
)

const maxKeyAttempts = 10

// AddUser stores a new user. An empty ID is generated; students without a
// barcode or secret code get unique generated ones.
func (s *Store) AddUser(u models.User, actor string) (models.User, error) {
	u.Name = strings.TrimSpace(u.Name)
	if u.Name == "" {
		return models.User{}, fmt.Errorf("user name required: %w", ErrInvalidInput)
	}
	if u.Role == "" {
		u.Role = models.RoleStudent
	}
	if !u.Role.Valid() {
		return models.User{}, fmt.Errorf("role %q: %w", u.Role, ErrInvalidInput)
	}

	err := s.mutate(EventUserAdded, actor, func(st *models.Snapshot) ([]string, error) {
		if u.ID == "" {
			u.ID = s.ids.NewID()
		}
		if userIndex(st, u.ID) >= 0 {
			return nil, fmt.Errorf("user id %q already exists: %w", u.ID, ErrConflict)
		}
		if u.Role == models.RoleStudent {
			if u.Barcode == nil {
				code, err := uniqueKey(st, s.ids.NewBarcode, barcodeTaken)
				if err != nil {
					return nil, err
				}
				u.Barcode = &code
			}
			if u.SecretCode == nil {
				code, err := uniqueKey(st, s.ids.NewSecretCode, secretCodeTaken)
				if err != nil {
					return nil, err
				}
				u.SecretCode = &code
			}
		}
		if err := checkUserKeys(st, u); err != nil {
			return nil, err
		}
		u.CreatedAt = s.now()
		st.Users = append(st.Users, u)
		return []string{u.ID}, nil
	})
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

// UpdateUser merges patch into the user with id.
func (s *Store) UpdateUser(id string, patch models.UserPatch, actor string) (models.User, error) {
	if patch.Role != nil && !patch.Role.Valid() {
		return models.User{}, fmt.Errorf("role %q: %w", *patch.Role, ErrInvalidInput)
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return models.User{}, fmt.Errorf("user name required: %w", ErrInvalidInput)
	}
	var out models.User
	err := s.mutate(EventUserUpdated, actor, func(st *models.Snapshot) ([]string, error) {
		i := userIndex(st, id)
		if i < 0 {
			return nil, fmt.Errorf("user %q: %w", id, ErrNotFound)
		}
		u := st.Users[i]
		patch.Apply(&u)
		if err := checkUserKeys(st, u); err != nil {
			return nil, err
		}
		st.Users[i] = u
		out = u
		return []string{id}, nil
	})
	if err != nil {
		return models.User{}, err
	}
	return out, nil
}

// DeleteUser removes the user. Transactions that mention it are kept.
func (s *Store) DeleteUser(id, actor string) error {
	return s.mutate(EventUserDeleted, actor, func(st *models.Snapshot) ([]string, error) {
		i := userIndex(st, id)
		if i < 0 {
			return nil, fmt.Errorf("user %q: %w", id, ErrNotFound)
		}
		st.Users = append(st.Users[:i], st.Users[i+1:]...)
		return []string{id}, nil
	})
}

func barcodeTaken(st *models.Snapshot, code, exceptID string) bool {
	for _, u := range st.Users {
		if u.ID != exceptID && u.Barcode != nil && *u.Barcode == code {
			return true
		}
	}
	return false
}

func secretCodeTaken(st *models.Snapshot, code, exceptID string) bool {
	for _, u := range st.Users {
		if u.ID != exceptID && u.SecretCode != nil && *u.SecretCode == code {
			return true
		}
	}
	return false
}

func checkUserKeys(st *models.Snapshot, u models.User) error {
	if u.Barcode != nil && barcodeTaken(st, *u.Barcode, u.ID) {
		return fmt.Errorf("barcode %q is in use: %w", *u.Barcode, ErrConflict)
	}
	if u.SecretCode != nil && secretCodeTaken(st, *u.SecretCode, u.ID) {
		return fmt.Errorf("secret code is in use: %w", ErrConflict)
	}
	return nil
}

func uniqueKey(st *models.Snapshot, gen func() string, taken func(*models.Snapshot, string, string) bool) (string, error) {
	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		code := gen()
		if !taken(st, code, "") {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique code: %w", ErrConflict)
}

// --- products ---

func validateProduct(p models.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product name required: %w", ErrInvalidInput)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("price %s: %w", p.Price, ErrInvalidAmount)
	}
	if p.Stock < 0 {
		return fmt.Errorf("stock %d: %w", p.Stock, ErrInvalidAmount)
	}
	return nil
}

func (s *Store) AddProduct(p models.Product, actor string) (models.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := validateProduct(p); err != nil {
		return models.Product{}, err
	}
	err := s.mutate(EventProductAdded, actor, func(st *models.Snapshot) ([]string, error) {
		if p.ID == "" {
			p.ID = s.ids.NewID()
		}
		if productIndex(st, p.ID) >= 0 {
			return nil, fmt.Errorf("product id %q already exists: %w", p.ID, ErrConflict)
		}
		p.CreatedAt = s.now()
		st.Products = append(st.Products, p)
		return nil, nil
	})
	if err != nil {
		return models.Product{}, err
	}
	return p, nil
}

// UpdateProduct merges patch into the product. A price change does not
// touch past purchases, which keep their own price snapshot.
func (s *Store) UpdateProduct(id string, patch models.ProductPatch, actor string) (models.Product, error) {
	var out models.Product
	err := s.mutate(EventProductUpdated, actor, func(st *models.Snapshot) ([]string, error) {
		i := productIndex(st, id)
		if i < 0 {
			return nil, fmt.Errorf("product %q: %w", id, ErrNotFound)
		}
		p := st.Products[i]
		patch.Apply(&p)
		if err := validateProduct(p); err != nil {
			return nil, err
		}
		st.Products[i] = p
		out = p
		return nil, nil
	})
	if err != nil {
		return models.Product{}, err
	}
	return out, nil
}

// Restock adds quantity units to a product.
func (s *Store) Restock(id string, quantity int, actor string) (models.Product, error) {
	if quantity <= 0 {
		return models.Product{}, fmt.Errorf("restock quantity %d: %w", quantity, ErrInvalidAmount)
	}
	var out models.Product
	err := s.mutate(EventProductUpdated, actor, func(st *models.Snapshot) ([]string, error) {
		i := productIndex(st, id)
		if i < 0 {
			return nil, fmt.Errorf("product %q: %w", id, ErrNotFound)
		}
		if quantity > math.MaxInt-st.Products[i].Stock {
			return nil, fmt.Errorf("restock of %d would overflow stock %d: %w", quantity, st.Products[i].Stock, ErrInvalidAmount)
		}
		st.Products[i].Stock += quantity
		out = st.Products[i]
		return nil, nil
	})
	if err != nil {
		return models.Product{}, err
	}
	return out, nil
}

func (s *Store) DeleteProduct(id, actor string) error {
	return s.mutate(EventProductDeleted, actor, func(st *models.Snapshot) ([]string, error) {
		i := productIndex(st, id)
		if i < 0 {
			return nil, fmt.Errorf("product %q: %w", id, ErrNotFound)
		}
		st.Products = append(st.Products[:i], st.Products[i+1:]...)
		return nil, nil
	})
}

// CartTotal prices a cart at current prices without selling anything.
func (s *Store) CartTotal(cart []CartLine) (decimal.Decimal, error) {
	lines, err := mergeCart(cart)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	err = s.read(func(st *models.Snapshot) error {
		for _, l := range lines {
			i := productIndex(st, l.ProductID)
			if i < 0 {
				return fmt.Errorf("product %q: %w", l.ProductID, ErrNotFound)
			}
			total = total.Add(st.Products[i].Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
		}
		return nil
	})
	return total, err
}

// --- staff ---

func roster(st *models.Snapshot, r models.Roster) (*[]models.Staff, error) {
	switch r {
	case models.RosterWorkers:
		return &st.Workers, nil
	case models.RosterEmployees:
		return &st.Employees, nil
	}
	return nil, fmt.Errorf("roster %q: %w", r, ErrInvalidInput)
}

func staffIndex(list []models.Staff, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func emailTaken(list []models.Staff, email, exceptID string) bool {
	for _, m := range list {
		if m.ID != exceptID && strings.EqualFold(m.Email, email) {
			return true
		}
	}
	return false
}

// Staff lists the members of a roster.
func (s *Store) Staff(r models.Roster) ([]models.Staff, error) {
	var out []models.Staff
	err := s.read(func(st *models.Snapshot) error {
		list, err := roster(st, r)
		if err != nil {
			return err
		}
		out = append([]models.Staff{}, (*list)...)
		return nil
	})
	return out, err
}

// AddStaff stores a new member. Emails are unique within a roster,
// ignoring case.
func (s *Store) AddStaff(r models.Roster, m models.Staff, actor string) (models.Staff, error) {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.TrimSpace(m.Email)
	if m.Name == "" || m.Email == "" {
		return models.Staff{}, fmt.Errorf("name and email required: %w", ErrInvalidInput)
	}
	err := s.mutate(EventStaffChanged, actor, func(st *models.Snapshot) ([]string, error) {
		list, err := roster(st, r)
		if err != nil {
			return nil, err
		}
		if emailTaken(*list, m.Email, "") {
			return nil, fmt.Errorf("email %q is in use: %w", m.Email, ErrConflict)
		}
		if m.ID == "" {
			m.ID = s.ids.NewID()
		}
		if staffIndex(*list, m.ID) >= 0 {
			return nil, fmt.Errorf("%s id %q already exists: %w", r, m.ID, ErrConflict)
		}
		m.CreatedAt = s.now()
		*list = append(*list, m)
		return nil, nil
	})
	if err != nil {
		return models.Staff{}, err
	}
	return m, nil
}

func (s *Store) UpdateStaff(r models.Roster, id string, patch models.StaffPatch, actor string) (models.Staff, error) {
	var out models.Staff
	err := s.mutate(EventStaffChanged, actor, func(st *models.Snapshot) ([]string, error) {
		list, err := roster(st, r)
		if err != nil {
			return nil, err
		}
		i := staffIndex(*list, id)
		if i < 0 {
			return nil, fmt.Errorf("%s %q: %w", r, id, ErrNotFound)
		}
		m := (*list)[i]
		patch.Apply(&m)
		if strings.TrimSpace(m.Name) == "" || strings.TrimSpace(m.Email) == "" {
			return nil, fmt.Errorf("name and email required: %w", ErrInvalidInput)
		}
		if emailTaken(*list, m.Email, id) {
			return nil, fmt.Errorf("email %q is in use: %w", m.Email, ErrConflict)
		}
		(*list)[i] = m
		out = m
		return nil, nil
	})
	if err != nil {
		return models.Staff{}, err
	}
	return out, nil
}

func (s *Store) DeleteStaff(r models.Roster, id, actor string) error {
	return s.mutate(EventStaffChanged, actor, func(st *models.Snapshot) ([]string, error) {
		list, err := roster(st, r)
		if err != nil {
			return nil, err
		}
		i := staffIndex(*list, id)
		if i < 0 {
			return nil, fmt.Errorf("%s %q: %w", r, id, ErrNotFound)
		}
		*list = append((*list)[:i], (*list)[i+1:]...)
		return nil, nil
	})
}

// AuthenticateWorker checks a worker login. Passwords are compared as
// stored, in plain text. The account the worker was found in is returned
// with the match, read under the same lock.
func (s *Store) AuthenticateWorker(email, password string) (models.Staff, string, error) {
	var (
		out     models.Staff
		account string
	)
	err := s.read(func(st *models.Snapshot) error {
		for _, w := range st.Workers {
			if strings.EqualFold(w.Email, strings.TrimSpace(email)) && w.Password == password {
				out = w
				account = s.account
				return nil
			}
		}
		return ErrInvalidCredentials
	})
	if err != nil {
		return models.Staff{}, "", err
	}
	return out, account, nil
}

// AuthenticateStudent finds the student holding code and the account they
// belong to. An unknown code is ErrInvalidCredentials.
func (s *Store) AuthenticateStudent(code string) (models.User, string, error) {
	var (
		out     models.User
		account string
	)
	err := s.read(func(st *models.Snapshot) error {
		for _, u := range st.Users {
			if u.Role == models.RoleStudent && u.SecretCode != nil && *u.SecretCode == code {
				out = u
				account = s.account
				return nil
			}
		}
		return ErrInvalidCredentials
	})
	if err != nil {
		return models.User{}, "", err
	}
	return out, account, nil
}
