package repository

import (
	"context"
	"database/sql"
	"log"
	"testing"
	"time"

	"github.com/shrixtacy/RIVETO/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var testDB *sql.DB

func setupTestDB() (func(context.Context, ...testcontainers.TerminateOption) error, error) {
	var (
		dbName = "testdb"
		dbPwd  = "password"
		dbUser = "user"
	)

	dbContainer, err := postgres.Run(
		context.Background(),
		"postgres:15",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	if err != nil {
		return nil, err
	}

	dbHost, err := dbContainer.Host(context.Background())
	if err != nil {
		return dbContainer.Terminate, err
	}

	dbPort, err := dbContainer.MappedPort(context.Background(), "5432/tcp")
	if err != nil {
		return dbContainer.Terminate, err
	}

	connStr := "postgres://" + dbUser + ":" + dbPwd + "@" + dbHost + ":" + dbPort.Port() + "/" + dbName + "?sslmode=disable"
	testDB, err = sql.Open("pgx", connStr)
	if err != nil {
		return dbContainer.Terminate, err
	}

	// Create the schema the repositories under test expect
	schema := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			first_name VARCHAR(100),
			last_name VARCHAR(100),
			role VARCHAR(50) NOT NULL DEFAULT 'user',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price DECIMAL(10, 2) NOT NULL CHECK (price >= 0),
			category VARCHAR(100) NOT NULL DEFAULT '',
			sub_category VARCHAR(100) NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			bestseller BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS product_sizes (
			product_id UUID NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			size VARCHAR(20) NOT NULL,
			position INT NOT NULL DEFAULT 0,
			PRIMARY KEY (product_id, size)
		)`,
		`CREATE TABLE IF NOT EXISTS product_stock (
			product_id UUID NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			size VARCHAR(20) NOT NULL,
			quantity INT NOT NULL DEFAULT 0 CHECK (quantity >= 0),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			PRIMARY KEY (product_id, size)
		)`,
		`CREATE TABLE IF NOT EXISTS cart_items (
			user_id UUID NOT NULL,
			product_id UUID NOT NULL,
			size VARCHAR(20) NOT NULL,
			quantity INT NOT NULL CHECK (quantity > 0),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, product_id, size)
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			subtotal DECIMAL(10, 2) NOT NULL,
			delivery_fee DECIMAL(10, 2) NOT NULL,
			amount DECIMAL(10, 2) NOT NULL,
			address_firstname VARCHAR(100) NOT NULL,
			address_lastname VARCHAR(100) NOT NULL,
			address_email VARCHAR(255) NOT NULL,
			address_street VARCHAR(255) NOT NULL,
			address_city VARCHAR(100) NOT NULL,
			address_state VARCHAR(100) NOT NULL,
			address_pincode VARCHAR(20) NOT NULL,
			address_country VARCHAR(100) NOT NULL,
			address_phone VARCHAR(30) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'Placed',
			payment_method VARCHAR(20) NOT NULL DEFAULT 'COD',
			payment BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			line_no INT NOT NULL,
			product_id UUID NOT NULL,
			name VARCHAR(255) NOT NULL,
			size VARCHAR(20) NOT NULL,
			quantity INT NOT NULL CHECK (quantity > 0),
			unit_price DECIMAL(10, 2) NOT NULL,
			subtotal DECIMAL(10, 2) NOT NULL,
			PRIMARY KEY (order_id, line_no)
		)`,
	}
	for _, stmt := range schema {
		if _, err := testDB.Exec(stmt); err != nil {
			return dbContainer.Terminate, err
		}
	}

	return dbContainer.Terminate, nil
}

func TestMain(m *testing.M) {
	teardown, err := setupTestDB()
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}

	m.Run()

	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Fatalf("could not teardown postgres container: %v", err)
		}
	}
}

// Feature: ordering-platform, Property 1: Registration creates hashed passwords
// Validates: Requirements 1.1, 1.3
func TestProperty_RegistrationCreatesHashedPasswords(t *testing.T) {
	repo := NewUserRepository(testDB)
	ctx := context.Background()

	properties := gopter.NewProperties(nil)

	properties.Property("passwords are hashed with bcrypt and not stored as plaintext", prop.ForAll(
		func(email string, password string, firstName string, lastName string) bool {
			// Clean up before each test
			_, _ = testDB.Exec("DELETE FROM users WHERE email = $1", email)

			// Hash the password with bcrypt
			hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				t.Logf("Failed to hash password: %v", err)
				return false
			}

			// Create user with hashed password
			user := &domain.User{
				ID:           uuid.New(),
				Email:        email,
				PasswordHash: string(hashedPassword),
				FirstName:    firstName,
				LastName:     lastName,
				Role:         "user",
				CreatedAt:    time.Now(),
				UpdatedAt:    time.Now(),
			}

			// Store the user
			err = repo.Create(ctx, user)
			if err != nil {
				t.Logf("Failed to create user: %v", err)
				return false
			}

			// Retrieve the user
			retrievedUser, err := repo.FindByEmail(ctx, email)
			if err != nil {
				t.Logf("Failed to find user: %v", err)
				return false
			}

			// Verify the password is hashed (not equal to plaintext)
			if retrievedUser.PasswordHash == password {
				t.Logf("Password was stored as plaintext!")
				return false
			}

			// Verify the stored hash is a valid bcrypt hash by comparing
			err = bcrypt.CompareHashAndPassword([]byte(retrievedUser.PasswordHash), []byte(password))
			if err != nil {
				t.Logf("Stored password is not a valid bcrypt hash: %v", err)
				return false
			}

			// Clean up after test
			_, _ = testDB.Exec("DELETE FROM users WHERE email = $1", email)

			return true
		},
		// Generate valid email addresses
		gen.RegexMatch(`[a-z]{5,10}@[a-z]{3,8}\.(com|org|net)`),
		// Generate passwords with at least 8 characters
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
		// Generate first names
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
		// Generate last names
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
