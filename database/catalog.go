// Package catalog holds the static description of every per-school
// collection: which collections a school database must contain and the
// indexes each one carries. Provisioning and the model factory both read from
// this table so the two can never disagree about layout.
package catalog

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Entity tags a domain entity whose documents live in a per-school collection.
// The model factory accepts these tags rather than raw collection names.
type Entity string

const (
	EntityUser       Entity = "user"
	EntityStudent    Entity = "student"
	EntityTeacher    Entity = "teacher"
	EntityParent     Entity = "parent"
	EntityClass      Entity = "class"
	EntityTimetable  Entity = "timetable"
	EntityAttendance Entity = "attendance"
	EntityFee        Entity = "fee"
	EntityAssignment Entity = "assignment"
	EntityMessage    Entity = "message"
	EntityTest       Entity = "testdetails"
)

const (
	// SequencesCollection stores the single per-school counter document.
	SequencesCollection = "id_sequences"
	// SequencesDocID is the fixed _id of that document.
	SequencesDocID = "sequences"
)

// Collection describes one per-school collection and the indexes provisioning
// must ensure on it.
type Collection struct {
	Name    string
	Indexes []mongo.IndexModel
}

func unique(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name).SetUnique(true)}
}

func plain(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name)}
}

// collections maps entity tags to their descriptors. Provisioning order is
// defined by Entities, not by this map.
var collections = map[Entity]Collection{
	EntityUser: {
		Name: "users",
		Indexes: []mongo.IndexModel{
			unique("uniq_user_id", bson.D{{Key: "userId", Value: 1}}),
			plain("idx_user_email", bson.D{{Key: "email", Value: 1}}),
			plain("idx_user_role", bson.D{{Key: "role", Value: 1}}),
		},
	},
	EntityStudent: {
		Name: "students",
		Indexes: []mongo.IndexModel{
			unique("uniq_student_id", bson.D{{Key: "studentId", Value: 1}}),
			plain("idx_student_class", bson.D{{Key: "className", Value: 1}, {Key: "section", Value: 1}}),
		},
	},
	EntityTeacher: {
		Name: "teachers",
		Indexes: []mongo.IndexModel{
			unique("uniq_teacher_id", bson.D{{Key: "teacherId", Value: 1}}),
		},
	},
	EntityParent: {
		Name: "parents",
		Indexes: []mongo.IndexModel{
			unique("uniq_parent_id", bson.D{{Key: "parentId", Value: 1}}),
			plain("idx_parent_student", bson.D{{Key: "studentId", Value: 1}}),
		},
	},
	EntityClass: {
		Name: "classes",
		Indexes: []mongo.IndexModel{
			unique("uniq_class_section", bson.D{{Key: "className", Value: 1}, {Key: "section", Value: 1}}),
		},
	},
	EntityTimetable: {
		Name: "timetables",
		Indexes: []mongo.IndexModel{
			plain("idx_timetable_class_day", bson.D{{Key: "classId", Value: 1}, {Key: "day", Value: 1}}),
		},
	},
	EntityAttendance: {
		Name: "attendance",
		Indexes: []mongo.IndexModel{
			unique("uniq_attendance_student_date", bson.D{{Key: "studentId", Value: 1}, {Key: "date", Value: 1}}),
		},
	},
	EntityFee: {
		Name: "fees",
		Indexes: []mongo.IndexModel{
			plain("idx_fee_student_month", bson.D{{Key: "studentId", Value: 1}, {Key: "month", Value: 1}}),
		},
	},
	EntityAssignment: {
		Name: "assignments",
		Indexes: []mongo.IndexModel{
			plain("idx_assignment_class_due", bson.D{{Key: "classId", Value: 1}, {Key: "dueDate", Value: 1}}),
		},
	},
	EntityMessage: {
		Name: "messages",
		Indexes: []mongo.IndexModel{
			plain("idx_message_recipient", bson.D{{Key: "recipientId", Value: 1}, {Key: "createdAt", Value: -1}}),
		},
	},
	EntityTest: {
		Name: "testdetails",
		Indexes: []mongo.IndexModel{
			unique("uniq_test_id", bson.D{{Key: "testId", Value: 1}}),
		},
	},
}

// Entities returns every catalogued entity tag in provisioning order;
// Collections walks this front to back so failures reported by collection
// name are easy to line up with the table.
func Entities() []Entity {
	return []Entity{
		EntityUser, EntityStudent, EntityTeacher, EntityParent, EntityClass,
		EntityTimetable, EntityAttendance, EntityFee, EntityAssignment,
		EntityMessage, EntityTest,
	}
}

// Collections returns the full descriptor table in provisioning order.
func Collections() []Collection {
	out := make([]Collection, 0, len(collections))
	for _, e := range Entities() {
		out = append(out, collections[e])
	}
	return out
}

// Lookup resolves an entity tag to its collection descriptor.
func Lookup(e Entity) (Collection, bool) {
	c, ok := collections[e]
	return c, ok
}
