package models

import (
	"reflect"
	"strings"
	"testing"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

// assertFieldType checks that a struct field has the expected Go type.
func assertFieldType(t *testing.T, typ reflect.Type, fieldName, expectedType string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	got := f.Type.String()
	if got != expectedType {
		t.Errorf("%s.%s type = %q, want %q", typ.Name(), fieldName, got, expectedType)
	}
}

func TestOrderSession_Fields(t *testing.T) {
	typ := reflect.TypeOf(OrderSession{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "ID", "size:36")
	assertGormTag(t, typ, "ConversationID", "not null")
	assertGormTag(t, typ, "ConversationID", "index")
	assertGormTag(t, typ, "DistributorID", "not null")
	assertGormTag(t, typ, "Status", "default:ACTIVE")
	assertGormTag(t, typ, "Status", "index")
	assertGormTag(t, typ, "ExpiresAt", "index")
	assertGormTag(t, typ, "CollectedMessageIDs", "type:json")

	assertFieldType(t, typ, "ClosedAt", "*time.Time")
	assertFieldType(t, typ, "ConfidenceScore", "float64")
	assertFieldType(t, typ, "Items", "[]models.OrderSessionItem")
	assertFieldType(t, typ, "Events", "[]models.OrderSessionEvent")
}

func TestOrderSessionItem_Fields(t *testing.T) {
	typ := reflect.TypeOf(OrderSessionItem{})

	assertGormTag(t, typ, "SessionID", "size:36")
	assertGormTag(t, typ, "SessionID", "index")
	assertGormTag(t, typ, "SequenceNumber", "not null")
	assertGormTag(t, typ, "UnitPrice", "type:decimal(12,2)")
	assertGormTag(t, typ, "ItemStatus", "default:ACTIVE")

	assertFieldType(t, typ, "UnitPrice", "*float64")
	assertFieldType(t, typ, "LineTotal", "*float64")
	assertFieldType(t, typ, "SuggestedProductID", "*string")
}

func TestOrderSessionEvent_Fields(t *testing.T) {
	typ := reflect.TypeOf(OrderSessionEvent{})

	assertGormTag(t, typ, "SessionID", "not null")
	assertGormTag(t, typ, "EventType", "not null")
	assertGormTag(t, typ, "EventData", "type:json")
}

func TestOrder_Fields(t *testing.T) {
	typ := reflect.TypeOf(Order{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "CustomerID", "not null")
	assertGormTag(t, typ, "Status", "default:PENDING_REVIEW")
	assertGormTag(t, typ, "TotalAmount", "type:decimal(12,2)")
	assertGormTag(t, typ, "OrderSessionID", "index")

	assertFieldType(t, typ, "ConversationID", "*string")
	assertFieldType(t, typ, "DeliveryDate", "*time.Time")
	assertFieldType(t, typ, "AISourceMessageID", "*string")
	assertFieldType(t, typ, "Products", "[]models.OrderProduct")
}

func TestOrderProduct_Fields(t *testing.T) {
	typ := reflect.TypeOf(OrderProduct{})

	assertGormTag(t, typ, "OrderID", "size:36")
	assertGormTag(t, typ, "OrderID", "index")
	assertGormTag(t, typ, "UnitPrice", "type:decimal(12,2)")
	assertGormTag(t, typ, "LinePrice", "type:decimal(12,2)")
	assertGormTag(t, typ, "LineOrder", "not null")

	assertFieldType(t, typ, "Quantity", "float64")
	assertFieldType(t, typ, "SuggestedProductID", "*string")
}
