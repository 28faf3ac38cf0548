package user

import (
	"encoding/json"
	"errors"
	"io/ioutil"
)

// UserDB is a JSON-file-backed directory of locally accepted mailboxes,
// unchanged in shape from the teacher's user.UserDB (the helpers.Assert
// call it used to make on Get is gone: it asserted a constant true and
// never guarded anything).
type UserDB struct {
	Users map[string]User
}

// UserExists checks if a user exists in the DB
func (db *UserDB) UserExists(name string) bool {
	_, found := db.Users[name]
	return found
}

// Get user from the database
func (db *UserDB) Get(name string) (*User, error) {
	if db.UserExists(name) {
		user := db.Users[name]
		return &user, nil
	}
	return nil, errors.New("User not found")
}

// Add user to the database
func (db *UserDB) Add(user User) error {
	if db.Users == nil {
		db.Users = make(map[string]User)
	}
	if db.UserExists(user.Name) {
		return errors.New("User already exists")
	}
	db.Users[user.Name] = user
	return nil
}

// SaveDB writes the database to file as indented JSON.
func (db *UserDB) SaveDB(file string) error {
	output, err := json.MarshalIndent(db, "", "\t")
	if err != nil {
		return err
	}
	return ioutil.WriteFile(file, output, 0644)
}

// LoadDB reads the database back from file.
func LoadDB(file string) (*UserDB, error) {
	input, err := ioutil.ReadFile(file)
	if err != nil {
		return nil, err
	}

	db := UserDB{}
	if err := json.Unmarshal(input, &db); err != nil {
		return nil, err
	}
	return &db, nil
}
