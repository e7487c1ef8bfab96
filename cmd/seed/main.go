// Seeds a demo player and guardian so signing tokens can be issued against
// a fresh development database.
package main

import (
	"log"

	"github.com/rlagosf/rafc-go-backend/internal/di"
	"github.com/rlagosf/rafc-go-backend/internal/domain"
)

func main() {
	runner, err := di.InitializeMigrationRunner()
	if err != nil {
		log.Fatal(err)
	}
	if err := runner.Run(); err != nil {
		log.Fatal(err)
	}
	if err := runner.Seed([]domain.Player{
		{Rut: 12345678, FirstName: "Benjamín", LastName: "Soto"},
	}, []domain.Guardian{
		{Rut: 98765432, FirstName: "Carolina", LastName: "Muñoz", Email: "carolina@example.cl"},
	}); err != nil {
		log.Fatal(err)
	}
	log.Println("seeded demo player 12345678 and guardian 98765432")
}
