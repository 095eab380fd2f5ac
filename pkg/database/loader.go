package database

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"
	"time"

	"ab-retention/pkg/models"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// Always work in UTC and format as MySQL DATETIME strings
const layout = "2006-01-02 15:04:05"

var tableName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Store lit les lignes brutes depuis MariaDB/MySQL.
type Store struct {
	db *sqlx.DB
}

// Open DSN mariadb:// ou mysql:// → format MySQL driver
func Open(dsn string) (*Store, string, error) {
	mysqlDSN, err := toMySQLDSN(dsn)
	if err != nil {
		return nil, "", err
	}
	db, err := sqlx.Open("mysql", mysqlDSN)
	if err != nil {
		return nil, "", err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{db: db}, mysqlDSN, nil
}

// Close ferme le pool de connexions.
func (s *Store) Close() error {
	return s.db.Close()
}

func toMySQLDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "mariadb://") || strings.HasPrefix(dsn, "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		user := ""
		pass := ""
		if u.User != nil {
			user = u.User.Username()
			pw, _ := u.User.Password()
			pass = pw
		}
		host := u.Host
		db := strings.TrimPrefix(u.Path, "/")
		if user == "" || host == "" || db == "" {
			return "", fmt.Errorf("dsn incomplet (user/host/db)")
		}
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&interpolateParams=true",
			user, pass, host, db), nil
	}
	return dsn, nil
}

func checkTable(table string) error {
	if !tableName.MatchString(table) {
		return fmt.Errorf("%w: table invalide %q", models.ErrInvalidParameter, table)
	}
	return nil
}

func entityQuery(table string) (string, error) {
	if err := checkTable(table); err != nil {
		return "", err
	}
	return fmt.Sprintf(`SELECT testgroup, revenue FROM %s`, table), nil
}

func registrationQuery(table string) (string, error) {
	if err := checkTable(table); err != nil {
		return "", err
	}
	return fmt.Sprintf(`SELECT uid, reg_ts FROM %s WHERE reg_ts >= ? AND reg_ts < ?`, table), nil
}

// activityQuery : sans borne haute en mode cumulative.
func activityQuery(table string, bounded bool) (string, error) {
	if err := checkTable(table); err != nil {
		return "", err
	}
	if bounded {
		return fmt.Sprintf(`SELECT uid, auth_ts FROM %s WHERE auth_ts >= ? AND auth_ts < ?`, table), nil
	}
	return fmt.Sprintf(`SELECT uid, auth_ts FROM %s WHERE auth_ts >= ?`, table), nil
}

// EntityRows lit toutes les lignes (testgroup, revenue) du test A/B.
func (s *Store) EntityRows(ctx context.Context, table string) ([]models.EntityRow, error) {
	q, err := entityQuery(table)
	if err != nil {
		return nil, err
	}
	var rows []models.EntityRow
	if err := s.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, err
	}
	log.Printf("[DEBUG] %s: %d entity rows", table, len(rows))
	return rows, nil
}

// Registrations lit les inscriptions dans [from, to).
func (s *Store) Registrations(ctx context.Context, table string, from, to time.Time) ([]models.RegistrationRow, error) {
	q, err := registrationQuery(table)
	if err != nil {
		return nil, err
	}
	log.Printf("[DEBUG] Boundaries UTC: registrations=[%s ; %s)", from.UTC().Format(layout), to.UTC().Format(layout))
	var rows []models.RegistrationRow
	if err := s.db.SelectContext(ctx, &rows, q, from.UTC().Format(layout), to.UTC().Format(layout)); err != nil {
		return nil, err
	}
	log.Printf("[DEBUG] %s: %d registrations", table, len(rows))
	return rows, nil
}

// Activity lit l'activité dans [from, to), ou [from, ∞) si to est zéro.
func (s *Store) Activity(ctx context.Context, table string, from, to time.Time) ([]models.ActivityRow, error) {
	bounded := !to.IsZero()
	q, err := activityQuery(table, bounded)
	if err != nil {
		return nil, err
	}
	args := []any{from.UTC().Format(layout)}
	if bounded {
		args = append(args, to.UTC().Format(layout))
		log.Printf("[DEBUG] Boundaries UTC: activity=[%s ; %s)", args[0], args[1])
	} else {
		log.Printf("[DEBUG] Boundaries UTC: activity=[%s ; +inf)", args[0])
	}
	var rows []models.ActivityRow
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	log.Printf("[DEBUG] %s: %d activity rows", table, len(rows))
	return rows, nil
}
