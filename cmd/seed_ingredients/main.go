package main

import (
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/vitalstack/formula-backend/internal/database"
	"github.com/vitalstack/formula-backend/internal/models"
)

// Canonical catalog entries. DoseMg is the per-serving dose used when a
// formula entry does not carry an explicit amount.
var ingredients = []models.Ingredient{
	{Name: "Vitamin C", DoseMg: 500, Category: "vitamin", Description: "Ascorbic acid, antioxidant support"},
	{Name: "Vitamin D3", DoseMg: 50, Category: "vitamin", Description: "Cholecalciferol, bone and immune support"},
	{Name: "Vitamin B12", DoseMg: 1, Category: "vitamin", Description: "Methylcobalamin, energy metabolism"},
	{Name: "Magnesium Glycinate", DoseMg: 400, Category: "mineral", Description: "Highly absorbable magnesium chelate"},
	{Name: "Zinc Picolinate", DoseMg: 30, Category: "mineral", Description: "Immune and skin support"},
	{Name: "Iron Bisglycinate", DoseMg: 25, Category: "mineral", Description: "Gentle iron for energy and blood health"},
	{Name: "Omega-3 Fish Oil", DoseMg: 1000, Category: "fatty-acid", Description: "EPA/DHA for cardiovascular support"},
	{Name: "Ashwagandha", DoseMg: 600, Category: "adaptogen", Description: "KSM-66 root extract for stress support"},
	{Name: "Rhodiola Rosea", DoseMg: 400, Category: "adaptogen", Description: "Fatigue and cognitive resilience"},
	{Name: "L-Theanine", DoseMg: 200, Category: "amino-acid", Description: "Calm focus without sedation"},
	{Name: "Creatine Monohydrate", DoseMg: 3000, Category: "amino-acid", Description: "Strength and cognitive performance"},
	{Name: "Coenzyme Q10", DoseMg: 100, Category: "antioxidant", Description: "Cellular energy production"},
	{Name: "Curcumin", DoseMg: 500, Category: "botanical", Description: "Turmeric extract with joint support"},
	{Name: "Bacopa Monnieri", DoseMg: 300, Category: "nootropic", Description: "Memory and learning support"},
	{Name: "Lion's Mane", DoseMg: 500, Category: "nootropic", Description: "Mushroom extract for nerve health"},
	{Name: "Probiotic Blend", DoseMg: 200, Category: "digestive", Description: "Multi-strain gut support"},
	{Name: "Melatonin", DoseMg: 3, Category: "sleep", Description: "Sleep onset support"},
	{Name: "5-HTP", DoseMg: 100, Category: "sleep", Description: "Serotonin precursor"},
	{Name: "Alpha-GPC", DoseMg: 300, Category: "nootropic", Description: "Choline source for cognition"},
	{Name: "Selenium", DoseMg: 1, Category: "mineral", Description: "Thyroid and antioxidant support"},
}

func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	db, err := gorm.Open(postgres.Open(dbURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	seeded := 0
	for _, ingredient := range ingredients {
		var existing models.Ingredient
		err := db.Where("LOWER(name) = LOWER(?)", ingredient.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			log.Fatalf("Failed to check ingredient %s: %v", ingredient.Name, err)
		}
		if err := db.Create(&ingredient).Error; err != nil {
			log.Fatalf("Failed to seed ingredient %s: %v", ingredient.Name, err)
		}
		seeded++
	}

	log.Printf("Seeded %d ingredients (%d already present)", seeded, len(ingredients)-seeded)
}
