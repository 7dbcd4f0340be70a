package businessflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseContactsCSV(t *testing.T) {
	t.Run("parses rows with synonym headers", func(t *testing.T) {
		data := []byte("First Name,Last_Name,E-Mail,Phone Number\n" +
			"John,Doe,John.Doe@Example.COM,+1 (555) 123-4567\n" +
			"Jane,Smith,jane@example.com,\n")

		contacts, stats, err := ParseContacts(data, "contacts.csv")
		require.NoError(t, err)
		require.Len(t, contacts, 2)

		assert.Equal(t, "John", contacts[0].FirstName)
		assert.Equal(t, "Doe", contacts[0].LastName)
		assert.Equal(t, "john.doe@example.com", contacts[0].Email)
		assert.Equal(t, "15551234567", contacts[0].Phone)

		assert.Equal(t, "jane@example.com", contacts[1].Email)
		assert.Empty(t, contacts[1].Phone)

		assert.Equal(t, 2, stats.RowsTotal)
		assert.Equal(t, 0, stats.RowsDropped)
		assert.Equal(t, 0, stats.InvalidEmails)
	})

	t.Run("drops rows with both names blank", func(t *testing.T) {
		data := []byte("firstname,lastname,email\n" +
			",,orphan@example.com\n" +
			"Ada,,ada@example.com\n")

		contacts, stats, err := ParseContacts(data, "contacts.csv")
		require.NoError(t, err)
		require.Len(t, contacts, 1)
		assert.Equal(t, "Ada", contacts[0].FirstName)
		assert.Equal(t, 1, stats.RowsDropped)
	})

	t.Run("invalid email becomes absent", func(t *testing.T) {
		data := []byte("firstname,lastname,email\n" +
			"Bob,Jones,not-an-email\n")

		contacts, stats, err := ParseContacts(data, "contacts.csv")
		require.NoError(t, err)
		require.Len(t, contacts, 1)
		assert.Empty(t, contacts[0].Email)
		assert.Equal(t, 1, stats.InvalidEmails)
	})

	t.Run("strips international dialing prefix", func(t *testing.T) {
		data := []byte("firstname,lastname,mobile\n" +
			"Ann,Lee,0044 20 7946 0958\n")

		contacts, _, err := ParseContacts(data, "contacts.csv")
		require.NoError(t, err)
		require.Len(t, contacts, 1)
		assert.Equal(t, "442079460958", contacts[0].Phone)
	})

	t.Run("handles BOM on first header", func(t *testing.T) {
		data := []byte("\ufefffirstname,lastname\nEve,Adams\n")

		contacts, _, err := ParseContacts(data, "contacts.csv")
		require.NoError(t, err)
		require.Len(t, contacts, 1)
		assert.Equal(t, "Eve", contacts[0].FirstName)
	})

	t.Run("tolerates ragged rows", func(t *testing.T) {
		data := []byte("firstname,lastname,email\n" +
			"Sam,Hill\n" +
			"Kim,Law,kim@example.com,extra\n")

		contacts, _, err := ParseContacts(data, "contacts.csv")
		require.NoError(t, err)
		require.Len(t, contacts, 2)
		assert.Empty(t, contacts[0].Email)
		assert.Equal(t, "kim@example.com", contacts[1].Email)
	})
}

func TestParseContactsErrors(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		_, _, err := ParseContacts([]byte(""), "contacts.csv")
		assert.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("header only", func(t *testing.T) {
		_, _, err := ParseContacts([]byte("firstname,lastname\n"), "contacts.csv")
		assert.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("no name column", func(t *testing.T) {
		_, _, err := ParseContacts([]byte("email,phone\na@b.co,123\n"), "contacts.csv")
		assert.ErrorIs(t, err, ErrUnrecognizedSchema)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, _, err := ParseContacts([]byte("x"), "contacts.pdf")
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})
}

func TestParseContactsXLSX(t *testing.T) {
	xl := excelize.NewFile()
	sheet := xl.GetSheetName(0)
	require.NoError(t, xl.SetSheetRow(sheet, "A1", &[]string{"First Name", "Surname", "Email Address", "Tel"}))
	require.NoError(t, xl.SetSheetRow(sheet, "A2", &[]string{"Grace", "Hopper", "GRACE@Navy.MIL", "555-0100"}))
	require.NoError(t, xl.SetSheetRow(sheet, "A3", &[]string{"", "", "orphan@example.com", ""}))

	buf, err := xl.WriteToBuffer()
	require.NoError(t, err)

	contacts, stats, err := ParseContacts(buf.Bytes(), "contacts.xlsx")
	require.NoError(t, err)
	require.Len(t, contacts, 1)

	assert.Equal(t, "Grace", contacts[0].FirstName)
	assert.Equal(t, "Hopper", contacts[0].LastName)
	assert.Equal(t, "grace@navy.mil", contacts[0].Email)
	assert.Equal(t, "5550100", contacts[0].Phone)
	assert.Equal(t, 1, stats.RowsDropped)
}
