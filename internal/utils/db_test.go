package utils

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateConnectionString(t *testing.T) {
	conStr, err := GenerateConnectionString("localhost", 5432, "catalog", "secret", "catalog_db", "disable", 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}

	want := "host=localhost port=5432 user=catalog password=secret dbname=catalog_db sslmode=disable connect_timeout=5"
	if conStr != want {
		t.Fatalf("строка подключения %q, ожидалась %q", conStr, want)
	}
}

func TestGenerateConnectionStringValidation(t *testing.T) {
	cases := []struct {
		name    string
		host    string
		port    int
		user    string
		wantErr error
	}{
		{"пустой хост", "", 5432, "catalog", ErrStorageEmptyHostName},
		{"невалидный порт", "localhost", 0, "catalog", ErrStorageInvalidPortNumber},
		{"порт за пределами диапазона", "localhost", 70000, "catalog", ErrStorageInvalidPortNumber},
		{"пустой пользователь", "localhost", 5432, "", ErrStorageEmptyUsername},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := GenerateConnectionString(c.host, c.port, c.user, "secret", "catalog_db", "disable", 0)
			if !errors.Is(err, c.wantErr) {
				t.Fatalf("err = %v, ожидалось %v", err, c.wantErr)
			}
		})
	}
}
