package core

import "fmt"

// productGroupCodes is the registry's fixed numeric code per product group.
var productGroupCodes = map[ProductGroup]int{
	ProductGroupClothes:     1,
	ProductGroupShoes:       2,
	ProductGroupTobacco:     3,
	ProductGroupPerfumery:   4,
	ProductGroupTires:       5,
	ProductGroupElectronics: 6,
	ProductGroupPharma:      7,
	ProductGroupMilk:        8,
	ProductGroupBicycle:     9,
	ProductGroupWheelchairs: 10,
}

// ProductGroups lists the groups ordered by code.
var ProductGroups = []ProductGroup{
	ProductGroupClothes,
	ProductGroupShoes,
	ProductGroupTobacco,
	ProductGroupPerfumery,
	ProductGroupTires,
	ProductGroupElectronics,
	ProductGroupPharma,
	ProductGroupMilk,
	ProductGroupBicycle,
	ProductGroupWheelchairs,
}

// Code returns the numeric registry code for the group.
func (g ProductGroup) Code() (int, bool) {
	code, ok := productGroupCodes[g]
	return code, ok
}

// Valid reports whether g is a known product group.
func (g ProductGroup) Valid() bool {
	_, ok := productGroupCodes[g]
	return ok
}

// GroupCode resolves an optional group. A nil group yields a nil code.
func GroupCode(group *ProductGroup) (*int, error) {
	if group == nil {
		return nil, nil
	}
	code, ok := group.Code()
	if !ok {
		return nil, fmt.Errorf("unknown product group %q", *group)
	}
	return &code, nil
}

// ParseProductGroup normalizes user input. An empty value means no group.
func ParseProductGroup(value string) (*ProductGroup, error) {
	normalized := normalizeEnum(value)
	if normalized == "" {
		return nil, nil
	}
	group := ProductGroup(normalized)
	if !group.Valid() {
		return nil, fmt.Errorf("unknown product group: %s", value)
	}
	return &group, nil
}
