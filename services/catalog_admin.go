package services

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"monster-league-system/logger"
	"monster-league-system/models"
	"monster-league-system/utils"
)

// CatalogInvalidator drops cached catalog reads after an admin mutation.
type CatalogInvalidator interface {
	InvalidateCatalog()
}

// CatalogAdminService owns the back-office CRUD for objective definitions,
// objective sets and seasons. Definitions are configuration, not user data,
// so this service writes straight through *gorm.DB.
type CatalogAdminService struct {
	DB    *gorm.DB
	cache CatalogInvalidator
}

func NewCatalogAdminService(db *gorm.DB, cache CatalogInvalidator) *CatalogAdminService {
	return &CatalogAdminService{DB: db, cache: cache}
}

func (s *CatalogAdminService) bustCache() {
	if s.cache != nil {
		s.cache.InvalidateCatalog()
	}
}

// slugCode derives a stable objective code from a display name,
// e.g. "Open 10 Packs" -> "OPEN_10_PACKS".
func slugCode(name string) string {
	return strings.ToUpper(strings.ReplaceAll(slug.Make(name), "-", "_"))
}

// objectiveInput uses pointers where the zero value is a legitimate setting,
// so updates can tell "leave alone" from "season_code": "" (un-pin back to
// evergreen) and "sort_order": 0.
type objectiveInput struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Type        string  `json:"type"`
	TargetValue int64   `json:"target_value"`
	RewardType  string  `json:"reward_type"`
	RewardValue string  `json:"reward_value"`
	SeasonCode  *string `json:"season_code"`
	SortOrder   *int    `json:"sort_order"`
	IsActive    *bool   `json:"is_active"`
}

// CreateObjective registers a new objective definition.
func (s *CatalogAdminService) CreateObjective(c *fiber.Ctx) error {
	var input objectiveInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if input.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}
	objType := models.ObjectiveType(input.Type)
	if !objType.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": fmt.Sprintf("unknown objective type %q", input.Type)})
	}
	if input.TargetValue < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "target_value must be at least 1"})
	}
	rewardType := models.RewardType(input.RewardType)
	if input.RewardType == "" {
		rewardType = models.RewardTypeCoins
	}
	if !rewardType.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": fmt.Sprintf("unknown reward type %q", input.RewardType)})
	}

	code := input.Code
	if code == "" {
		code = slugCode(input.Name)
	}

	// Codes are referenced from clients and events; reject duplicates up front.
	var existing models.ObjectiveDefinition
	if err := s.DB.Where("code = ?", code).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "objective code already exists", "code": code})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	def := models.ObjectiveDefinition{
		ID:          uuid.NewString(),
		Code:        code,
		Name:        input.Name,
		Description: input.Description,
		Type:        objType,
		TargetValue: input.TargetValue,
		RewardType:  rewardType,
		RewardValue: input.RewardValue,
		IsActive:    true,
	}
	if input.SeasonCode != nil {
		def.SeasonCode = *input.SeasonCode
	}
	if input.SortOrder != nil {
		def.SortOrder = *input.SortOrder
	}
	if input.IsActive != nil {
		def.IsActive = *input.IsActive
	}

	if err := s.DB.Create(&def).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create objective"})
	}

	s.bustCache()
	logger.WithComponent("admin").Infof("objective %s created (type=%s target=%d)", def.Code, def.Type, def.TargetValue)
	return c.Status(fiber.StatusCreated).JSON(def)
}

// GetAllObjectives lists every definition, inactive ones included.
func (s *CatalogAdminService) GetAllObjectives(c *fiber.Ctx) error {
	var defs []models.ObjectiveDefinition
	if err := s.DB.Order("sort_order ASC, code ASC").Find(&defs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch objectives"})
	}
	return c.JSON(defs)
}

// UpdateObjective applies a partial update to a definition.
func (s *CatalogAdminService) UpdateObjective(c *fiber.Ctx) error {
	code := c.Params("code")

	var def models.ObjectiveDefinition
	if err := s.DB.Where("code = ?", code).First(&def).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "objective not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var input objectiveInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := applyObjectiveUpdate(&def, input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := s.DB.Save(&def).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update objective"})
	}

	s.bustCache()
	return c.JSON(def)
}

// applyObjectiveUpdate merges the provided fields into def. Absent fields
// stay untouched; pointer fields carry explicit zeros, so season_code ""
// un-pins a definition and sort_order 0 is settable.
func applyObjectiveUpdate(def *models.ObjectiveDefinition, input objectiveInput) error {
	if input.Name != "" {
		def.Name = input.Name
	}
	if input.Description != "" {
		def.Description = input.Description
	}
	if input.Type != "" {
		objType := models.ObjectiveType(input.Type)
		if !objType.Valid() {
			return fmt.Errorf("unknown objective type %q", input.Type)
		}
		def.Type = objType
	}
	if input.TargetValue != 0 {
		if input.TargetValue < 1 {
			return fmt.Errorf("target_value must be at least 1")
		}
		def.TargetValue = input.TargetValue
	}
	if input.RewardType != "" {
		rewardType := models.RewardType(input.RewardType)
		if !rewardType.Valid() {
			return fmt.Errorf("unknown reward type %q", input.RewardType)
		}
		def.RewardType = rewardType
	}
	if input.RewardValue != "" {
		def.RewardValue = input.RewardValue
	}
	if input.SeasonCode != nil {
		def.SeasonCode = *input.SeasonCode
	}
	if input.SortOrder != nil {
		def.SortOrder = *input.SortOrder
	}
	if input.IsActive != nil {
		def.IsActive = *input.IsActive
	}
	return nil
}

// UploadObjectiveIcon uploads a small public icon to R2 and stores its URL.
func (s *CatalogAdminService) UploadObjectiveIcon(c *fiber.Ctx) error {
	code := c.Params("code")

	var def models.ObjectiveDefinition
	if err := s.DB.Where("code = ?", code).First(&def).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "objective not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	iconFile, err := c.FormFile("icon")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "icon file is required"})
	}
	if iconFile.Size > 2*1024*1024 { // 2MB
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "icon too large (max 2MB)"})
	}

	ext := filepath.Ext(iconFile.Filename)
	if ext == "" {
		ext = ".png"
	}
	key := "objective-icons/" + uuid.NewString() + ext
	iconURL, err := utils.UploadFileToR2(c.Context(), iconFile, key)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to upload icon"})
	}

	oldURL := def.IconURL
	def.IconURL = iconURL
	if err := s.DB.Save(&def).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store icon url"})
	}

	// Best effort: the replaced icon is orphaned either way.
	if oldKey := utils.R2KeyFromURL(oldURL); oldKey != "" {
		if err := utils.DeleteFileFromR2(c.Context(), oldKey); err != nil {
			logger.WithComponent("admin").WithError(err).Warnf("failed to delete old icon %s", oldKey)
		}
	}

	s.bustCache()
	return c.JSON(fiber.Map{"code": def.Code, "icon_url": def.IconURL})
}

// DeleteObjective soft-deletes a definition. Progress rows are kept: claims
// on already-earned rewards must keep working.
func (s *CatalogAdminService) DeleteObjective(c *fiber.Ctx) error {
	code := c.Params("code")

	var def models.ObjectiveDefinition
	if err := s.DB.Where("code = ?", code).First(&def).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "objective not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	// Block deletion while a set still references it; deactivate instead.
	var memberCount int64
	s.DB.Model(&models.ObjectiveSetMember{}).Where("objective_id = ?", def.ID).Count(&memberCount)
	if memberCount > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":        "cannot delete objective: still a member of objective sets",
			"member_count": memberCount,
		})
	}

	if err := s.DB.Delete(&def).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete objective"})
	}

	s.bustCache()
	return c.JSON(fiber.Map{"message": "objective deleted", "code": code})
}

type setInput struct {
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	RewardType  string   `json:"reward_type"`
	RewardValue string   `json:"reward_value"`
	MemberCodes []string `json:"member_codes"`
	SortOrder   int      `json:"sort_order"`
	IsActive    *bool    `json:"is_active"`
}

// CreateObjectiveSet registers a set and its member links in one transaction.
func (s *CatalogAdminService) CreateObjectiveSet(c *fiber.Ctx) error {
	var input setInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if input.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}
	rewardType := models.RewardType(input.RewardType)
	if input.RewardType == "" {
		rewardType = models.RewardTypeCoins
	}
	if !rewardType.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": fmt.Sprintf("unknown reward type %q", input.RewardType)})
	}

	code := input.Code
	if code == "" {
		code = slugCode(input.Name)
	}

	var existing models.ObjectiveSet
	if err := s.DB.Where("code = ?", code).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "set code already exists", "code": code})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	members, err := s.resolveMembers(input.MemberCodes)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	set := models.ObjectiveSet{
		ID:          uuid.NewString(),
		Code:        code,
		Name:        input.Name,
		Description: input.Description,
		RewardType:  rewardType,
		RewardValue: input.RewardValue,
		SortOrder:   input.SortOrder,
		IsActive:    true,
	}
	if input.IsActive != nil {
		set.IsActive = *input.IsActive
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&set).Error; err != nil {
			return err
		}
		for i := range members {
			members[i].SetID = set.ID
			members[i].SortOrder = i
		}
		if len(members) > 0 {
			if err := tx.Create(&members).Error; err != nil {
				return err
			}
		}
		return tx.Preload("Members").First(&set, "id = ?", set.ID).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create objective set"})
	}

	s.bustCache()
	logger.WithComponent("admin").Infof("objective set %s created with %d members", set.Code, len(members))
	return c.Status(fiber.StatusCreated).JSON(set)
}

// GetAllObjectiveSets lists every set with members preloaded.
func (s *CatalogAdminService) GetAllObjectiveSets(c *fiber.Ctx) error {
	var sets []models.ObjectiveSet
	if err := s.DB.Preload("Members").Order("sort_order ASC, code ASC").Find(&sets).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch objective sets"})
	}
	return c.JSON(sets)
}

// ReplaceSetMembers swaps a set's membership for the given objective codes.
func (s *CatalogAdminService) ReplaceSetMembers(c *fiber.Ctx) error {
	code := c.Params("code")

	var set models.ObjectiveSet
	if err := s.DB.Where("code = ?", code).First(&set).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "objective set not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var input struct {
		MemberCodes []string `json:"member_codes"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	members, err := s.resolveMembers(input.MemberCodes)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("set_id = ?", set.ID).Delete(&models.ObjectiveSetMember{}).Error; err != nil {
			return err
		}
		for i := range members {
			members[i].SetID = set.ID
			members[i].SortOrder = i
		}
		if len(members) > 0 {
			if err := tx.Create(&members).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to replace set members"})
	}

	s.bustCache()
	return c.JSON(fiber.Map{"code": set.Code, "member_count": len(members)})
}

// resolveMembers maps objective codes to member rows, rejecting unknown codes.
func (s *CatalogAdminService) resolveMembers(codes []string) ([]models.ObjectiveSetMember, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	var defs []models.ObjectiveDefinition
	if err := s.DB.Where("code IN ?", codes).Find(&defs).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve member codes")
	}
	byCode := make(map[string]string, len(defs))
	for i := range defs {
		byCode[defs[i].Code] = defs[i].ID
	}

	members := make([]models.ObjectiveSetMember, 0, len(codes))
	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		id, ok := byCode[code]
		if !ok {
			return nil, fmt.Errorf("unknown objective code %q", code)
		}
		if seen[code] {
			return nil, fmt.Errorf("duplicate objective code %q", code)
		}
		seen[code] = true
		members = append(members, models.ObjectiveSetMember{
			ID:          uuid.NewString(),
			ObjectiveID: id,
		})
	}
	return members, nil
}

type seasonInput struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
}

// CreateSeason registers a season window. Activation is handled by the
// season scheduler, or manually via ActivateSeason.
func (s *CatalogAdminService) CreateSeason(c *fiber.Ctx) error {
	var input seasonInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if input.Code == "" || input.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "code and name are required"})
	}

	startsAt, err := time.Parse(time.RFC3339, input.StartsAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid starts_at — use RFC3339 (e.g., 2026-08-01T00:00:00Z)"})
	}
	endsAt, err := time.Parse(time.RFC3339, input.EndsAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid ends_at — use RFC3339"})
	}
	if !endsAt.After(startsAt) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "ends_at must be after starts_at"})
	}

	season := models.Season{
		ID:       uuid.NewString(),
		Code:     input.Code,
		Name:     input.Name,
		StartsAt: startsAt,
		EndsAt:   endsAt,
	}
	if err := s.DB.Create(&season).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create season"})
	}

	s.bustCache()
	return c.Status(fiber.StatusCreated).JSON(season)
}

// GetAllSeasons lists seasons newest-first.
func (s *CatalogAdminService) GetAllSeasons(c *fiber.Ctx) error {
	var seasons []models.Season
	if err := s.DB.Order("starts_at DESC").Find(&seasons).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch seasons"})
	}
	return c.JSON(seasons)
}

// ActivateSeason makes the given season the active one. Definitions and
// sets scoped to it activate with it; the previous season's retire.
func (s *CatalogAdminService) ActivateSeason(c *fiber.Ctx) error {
	code := c.Params("code")

	var season models.Season
	if err := s.DB.Where("code = ?", code).First(&season).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "season not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		return s.openSeason(tx, &season)
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to activate season"})
	}

	s.bustCache()
	logger.WithComponent("admin").Infof("season %s activated", season.Code)
	return c.JSON(fiber.Map{"message": "season activated", "code": season.Code})
}
