package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mealprep/recommender/internal/domain/customer"
)

// customerFile is the on-disk customer snapshot accepted by -customer
type customerFile struct {
	ID                  string   `json:"id"`
	CalorieGoal         float64  `json:"calorie_goal"`
	DietaryRestrictions []string `json:"dietary_restrictions"`
	Preferences         string   `json:"preferences"`
	Allergies           []struct {
		Name     string `json:"name"`
		Severity string `json:"severity"`
	} `json:"allergies"`
	History []struct {
		RecipeID string `json:"recipe_id"`
		ServedOn string `json:"served_on"`
		MealType string `json:"meal_type"`
	} `json:"history"`
	Warnings []string `json:"warnings"`
}

// demoCustomerID is used when -customer is not given
var demoCustomerID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("mealprep-demo-customer"))

func demoCustomer() (*customer.Context, error) {
	return customer.NewContext(customer.Params{
		ID: demoCustomerID,
		Profile: &customer.HealthProfile{
			CalorieGoal: 2000,
			Preferences: "likes spicy food and fresh vegetables",
		},
		Allergies: []customer.Allergy{{Name: "Peanuts", Severity: customer.SeveritySevere}},
	})
}

func loadCustomer(path string) (*customer.Context, error) {
	if path == "" {
		return demoCustomer()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read customer file: %w", err)
	}

	var f customerFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse customer file: %w", err)
	}

	id, err := uuid.Parse(f.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid customer id %q: %w", f.ID, err)
	}

	params := customer.Params{ID: id, Warnings: f.Warnings}

	if f.CalorieGoal > 0 || len(f.DietaryRestrictions) > 0 || f.Preferences != "" {
		profile := &customer.HealthProfile{
			CalorieGoal: f.CalorieGoal,
			Preferences: f.Preferences,
		}
		for _, r := range f.DietaryRestrictions {
			profile.DietaryRestrictions = append(profile.DietaryRestrictions, customer.DietaryRestriction(r))
		}
		params.Profile = profile
	}

	for _, a := range f.Allergies {
		severity := customer.Severity(a.Severity)
		if severity == "" {
			severity = customer.SeveritySevere
		}
		params.Allergies = append(params.Allergies, customer.Allergy{Name: a.Name, Severity: severity})
	}

	for _, h := range f.History {
		recipeID, err := uuid.Parse(h.RecipeID)
		if err != nil {
			return nil, fmt.Errorf("invalid history recipe id %q: %w", h.RecipeID, err)
		}
		servedOn, err := time.Parse(dateLayout, h.ServedOn)
		if err != nil {
			return nil, fmt.Errorf("invalid history date %q: %w", h.ServedOn, err)
		}
		params.History = append(params.History, customer.MealHistoryEntry{
			RecipeID: recipeID,
			ServedOn: servedOn,
			MealType: h.MealType,
		})
	}

	return customer.NewContext(params)
}
